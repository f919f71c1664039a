package store

import (
	"net/url"
	"time"
)

// Profile is a named collection of endpoints, optionally backed by a subscription URL.
type Profile struct {
	ID        int64
	Name      string
	URI       *string
	CreatedAt time.Time
}

// Endpoint is one share link of a profile together with its latest delay.
type Endpoint struct {
	ID        int64
	ProfileID int64
	Name      string
	URI       string
	Delay     Delay
	CreatedAt time.Time
}

// DisplayName returns the percent-decoded name, or the raw name if it does not decode.
func (e *Endpoint) DisplayName() string {
	decoded, err := url.PathUnescape(e.Name)
	if err != nil {
		return e.Name
	}
	return decoded
}
