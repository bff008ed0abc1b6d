package resolver

import "time"

// StreamResponse is returned by both stream endpoints.
type StreamResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}
