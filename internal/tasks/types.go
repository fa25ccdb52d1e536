package tasks

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeScanCount      = "qrset:scan_count"
	TypeQRExport       = "qrset:export"
	TypeSessionCleanup = "onboarding:cleanup"
)

// ScanCountPayload bumps a set's scan counter outside the submission
// transaction, keeping the hot path narrow.
type ScanCountPayload struct {
	QRCodeSetID uuid.UUID `json:"qr_code_set_id"`
}

func NewScanCountTask(payload ScanCountPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeScanCount, data, asynq.Queue("low")), nil
}

// QRExportPayload identifies the set whose entry points should be rendered
// and uploaded.
type QRExportPayload struct {
	QRCodeSetID    uuid.UUID `json:"qr_code_set_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
}

func NewQRExportTask(payload QRExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeQRExport, data), nil
}

func NewSessionCleanupTask() *asynq.Task {
	return asynq.NewTask(TypeSessionCleanup, nil, asynq.Queue("low"))
}
