package models

type Organization struct {
	Base
	Name         string `gorm:"not null" json:"name"`
	Slug         string `gorm:"uniqueIndex;not null" json:"slug"`
	ContactEmail string `gorm:"uniqueIndex;not null" json:"contact_email"`
	Plan         string `gorm:"default:'free'" json:"plan"` // free, starter, pro
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	// Relationships
	Users         []User         `gorm:"foreignKey:OrganizationID" json:"-"`
	QRCodeSets    []QRCodeSet    `gorm:"foreignKey:OrganizationID" json:"-"`
	Subscription  *Subscription  `gorm:"foreignKey:OrganizationID" json:"subscription,omitempty"`
	Registrations []Registration `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (Organization) TableName() string {
	return "organizations"
}
