package models

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// QRCodeEntry is one scannable entry point within a set. Stored as part of
// the set's qr_codes JSON column; labels and slugs are unique within a set.
type QRCodeEntry struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Slug   string `json:"slug"`
	Active bool   `json:"active"`
}

// QRCodeSet bundles a form-field schema with one or more QR entry points
// for a single organization. Sets are deactivated, never deleted.
type QRCodeSet struct {
	Base
	OrganizationID uuid.UUID      `gorm:"type:uuid;index;not null" json:"organization_id"`
	Name           string         `gorm:"not null" json:"name"`
	Language       string         `gorm:"default:'en'" json:"language"`
	FormFields     datatypes.JSON `gorm:"not null" json:"form_fields"`
	QRCodes        datatypes.JSON `gorm:"not null" json:"qr_codes"`
	IsActive       bool           `gorm:"default:true" json:"is_active"`
	ScanCount      int            `gorm:"default:0" json:"scan_count"`

	// Relationships
	Organization  *Organization  `gorm:"foreignKey:OrganizationID" json:"-"`
	Registrations []Registration `gorm:"foreignKey:QRCodeSetID" json:"-"`
}

func (QRCodeSet) TableName() string {
	return "qr_code_sets"
}

// Entries decodes the qr_codes column.
func (s *QRCodeSet) Entries() ([]QRCodeEntry, error) {
	var entries []QRCodeEntry
	if len(s.QRCodes) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(s.QRCodes, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SetEntries encodes entries into the qr_codes column.
func (s *QRCodeSet) SetEntries(entries []QRCodeEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	s.QRCodes = datatypes.JSON(data)
	return nil
}

// FindEntry returns the active entry matching the given label or slug.
func (s *QRCodeSet) FindEntry(label string) (*QRCodeEntry, bool) {
	entries, err := s.Entries()
	if err != nil {
		return nil, false
	}
	for i := range entries {
		if !entries[i].Active {
			continue
		}
		if entries[i].Label == label || entries[i].Slug == label {
			return &entries[i], true
		}
	}
	return nil, false
}
