// Package onboarding holds the wizard state an organization walks through
// before its first QR code set goes live. State is an explicit value object
// persisted through a pluggable store, not ambient session globals.
package onboarding

import (
	"context"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("onboarding session not found")

// DefaultTTL is how long an untouched wizard session survives.
const DefaultTTL = 24 * time.Hour

// SessionState is the onboarding wizard's progress for one staff user.
type SessionState struct {
	Step        string                 `json:"step"`
	OrgDraft    OrgDraft               `json:"org_draft"`
	QRSetDraft  QRSetDraft             `json:"qr_set_draft"`
	Answers     map[string]interface{} `json:"answers,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

type OrgDraft struct {
	Name         string `json:"name,omitempty"`
	Slug         string `json:"slug,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	Plan         string `json:"plan,omitempty"`
}

type QRSetDraft struct {
	Name     string `json:"name,omitempty"`
	Language string `json:"language,omitempty"`
}

// SessionStore persists wizard state keyed by user. Implementations must
// expire entries after their TTL; Purge exists for stores without native
// expiry.
type SessionStore interface {
	Get(ctx context.Context, key string) (*SessionState, error)
	Put(ctx context.Context, key string, state *SessionState, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Purge(ctx context.Context) (int, error)
}
