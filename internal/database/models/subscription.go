package models

import "github.com/google/uuid"

// Plan names and their registration quotas.
const (
	PlanFree    = "free"
	PlanStarter = "starter"
	PlanPro     = "pro"
)

// PlanLimits maps a plan name to its registration quota.
var PlanLimits = map[string]int{
	PlanFree:    100,
	PlanStarter: 1000,
	PlanPro:     10000,
}

// Subscription tracks an organization's registration quota and usage.
// RegistrationCount is only ever moved by a conditional update guarded by
// RegistrationLimit, so count <= limit holds under concurrent submissions.
type Subscription struct {
	Base
	OrganizationID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"organization_id"`
	Plan              string    `gorm:"default:'free'" json:"plan"`
	RegistrationLimit int       `gorm:"not null" json:"registration_limit"`
	RegistrationCount int       `gorm:"default:0" json:"registration_count"`
	UpgradeURL        string    `json:"upgrade_url"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
