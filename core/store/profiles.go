package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const profileColumns = `id, name, uri, created_at`

type Profiles struct {
	db DB
}

func NewProfiles(db DB) *Profiles {
	return &Profiles{db: db}
}

func scanProfile(rows pgx.Rows, p *Profile) error {
	return rows.Scan(&p.ID, &p.Name, &p.URI, &p.CreatedAt)
}

// Create inserts a profile. A taken name yields ErrProfileExists.
func (r *Profiles) Create(ctx context.Context, name string, uri *string) (Profile, error) {
	var p Profile
	err := queryOne(ctx, r.db, func(rows pgx.Rows) error { return scanProfile(rows, &p) }, `
		INSERT INTO profiles (name, uri)
		VALUES ($1, $2)
		RETURNING `+profileColumns, name, uri)
	if isUniqueViolation(err) {
		return Profile{}, ErrProfileExists
	}
	return p, err
}

func (r *Profiles) Get(ctx context.Context, id int64) (Profile, error) {
	var p Profile
	err := queryOne(ctx, r.db, func(rows pgx.Rows) error { return scanProfile(rows, &p) }, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE id = $1
	`, id)
	return p, err
}

func (r *Profiles) GetByName(ctx context.Context, name string) (Profile, error) {
	var p Profile
	err := queryOne(ctx, r.db, func(rows pgx.Rows) error { return scanProfile(rows, &p) }, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE name = $1
	`, name)
	return p, err
}

func (r *Profiles) List(ctx context.Context) ([]Profile, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		if err := scanProfile(rows, &p); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Delete removes the profile and, through the foreign key, its endpoints.
func (r *Profiles) Delete(ctx context.Context, id int64) error {
	n, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
