package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the business-fulfillment axis of a registration,
// independent of check-in.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryCancelled DeliveryStatus = "cancelled"
)

// TokenStatus tracks the check-in token state machine: active -> used,
// with undo returning to active. No other transitions exist.
type TokenStatus string

const (
	TokenActive TokenStatus = "active"
	TokenUsed   TokenStatus = "used"
)

type Registration struct {
	Base
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"organization_id"`
	QRCodeSetID    uuid.UUID `gorm:"type:uuid;index;not null" json:"qr_code_set_id"`
	QRCodeID       string    `gorm:"index" json:"qr_code_id"`

	// RegistrationData holds the age-encrypted, base64-encoded form answers.
	// Opaque to this layer; decrypted only when shaping responses.
	RegistrationData string `gorm:"type:text" json:"-"`

	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Referrer  string `json:"referrer,omitempty"`

	DeliveryStatus DeliveryStatus `gorm:"default:'pending';index" json:"delivery_status"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`

	// CheckInToken is issued eagerly at submission and never changes value.
	CheckInToken string      `gorm:"uniqueIndex;not null" json:"check_in_token"`
	TokenStatus  TokenStatus `gorm:"default:'active'" json:"token_status"`
	CheckedInAt  *time.Time  `json:"checked_in_at,omitempty"`
	CheckedInBy  *uuid.UUID  `gorm:"type:uuid" json:"checked_in_by,omitempty"`

	RegisteredAt time.Time `gorm:"index;not null" json:"registered_at"`

	// Relationships
	QRCodeSet *QRCodeSet `gorm:"foreignKey:QRCodeSetID" json:"-"`
}

func (Registration) TableName() string {
	return "registrations"
}

// IsCheckedIn reports whether the registration's token has been used.
// tokenStatus=used and checkedInAt are kept in lockstep by the check-in
// service's conditional updates.
func (r *Registration) IsCheckedIn() bool {
	return r.TokenStatus == TokenUsed
}
