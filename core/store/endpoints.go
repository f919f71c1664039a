package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const endpointColumns = `id, profile_id, delay, name, uri, created_at`

type Endpoints struct {
	db DB
}

func NewEndpoints(db DB) *Endpoints {
	return &Endpoints{db: db}
}

func scanEndpoint(rows pgx.Rows, e *Endpoint) error {
	var delay *int64
	if err := rows.Scan(&e.ID, &e.ProfileID, &delay, &e.Name, &e.URI, &e.CreatedAt); err != nil {
		return err
	}
	e.Delay = DelayFromColumn(delay)
	return nil
}

// Insert adds an untested endpoint to a profile.
func (r *Endpoints) Insert(ctx context.Context, profileID int64, name, uri string) (*Endpoint, error) {
	e := &Endpoint{}
	err := queryOne(ctx, r.db, func(rows pgx.Rows) error { return scanEndpoint(rows, e) }, `
		INSERT INTO urls (profile_id, name, uri)
		VALUES ($1, $2, $3)
		RETURNING `+endpointColumns, profileID, name, uri)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *Endpoints) Get(ctx context.Context, id int64) (*Endpoint, error) {
	e := &Endpoint{}
	err := queryOne(ctx, r.db, func(rows pgx.Rows) error { return scanEndpoint(rows, e) }, `
		SELECT `+endpointColumns+`
		FROM urls
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListByProfile returns the endpoints of a profile, measured ones first by
// ascending delay, then the rest in insertion order.
func (r *Endpoints) ListByProfile(ctx context.Context, profileID int64) ([]*Endpoint, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+endpointColumns+`
		FROM urls
		WHERE profile_id = $1
		ORDER BY CASE WHEN delay > 0 THEN 0 ELSE 1 END,
			CASE WHEN delay > 0 THEN delay END,
			id
	`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []*Endpoint
	for rows.Next() {
		e := &Endpoint{}
		if err := scanEndpoint(rows, e); err != nil {
			return nil, err
		}
		endpoints = append(endpoints, e)
	}
	return endpoints, rows.Err()
}

// UpdateDelay stores d for the endpoint. A missing endpoint yields ErrNotFound.
func (r *Endpoints) UpdateDelay(ctx context.Context, id int64, d Delay) error {
	n, err := r.db.Exec(ctx, `UPDATE urls SET delay = $1 WHERE id = $2`, d.Column(), id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByProfile removes every endpoint of a profile and reports how many were removed.
func (r *Endpoints) DeleteByProfile(ctx context.Context, profileID int64) (int64, error) {
	return r.db.Exec(ctx, `DELETE FROM urls WHERE profile_id = $1`, profileID)
}
