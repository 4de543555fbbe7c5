package model

import "time"

// Link is a code-to-URL mapping, the sole persisted entity.
type Link struct {
	ID            int64      `json:"id"`            // surrogate identity, assigned by the store
	Code          string     `json:"code"`          // unique lookup key, 6-8 alphanumeric chars
	TargetURL     string     `json:"targetUrl"`     // redirect destination
	TotalClicks   int64      `json:"totalClicks"`   // incremented once per successful redirect
	LastClickedAt *time.Time `json:"lastClickedAt"` // nil until the first click
	CreatedAt     time.Time  `json:"createdAt"`
}

// Clone returns an independent copy of the link.
func (l *Link) Clone() *Link {
	c := *l
	if l.LastClickedAt != nil {
		t := *l.LastClickedAt
		c.LastClickedAt = &t
	}
	return &c
}

// CreateLinkRequest is the body of POST /links.
type CreateLinkRequest struct {
	TargetURL  string `json:"targetUrl"`
	CustomCode string `json:"customCode,omitempty"`
}

// DeleteLinkResponse confirms which code was removed.
type DeleteLinkResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// HealthResponse is the fixed liveness payload.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}
