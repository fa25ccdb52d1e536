package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/rvegajr/blessbox-server/internal/database/models"
	"github.com/rvegajr/blessbox-server/internal/onboarding"
	"github.com/rvegajr/blessbox-server/internal/qrexport"
	"gorm.io/gorm"
)

type Handler struct {
	db       *gorm.DB
	logger   *slog.Logger
	exporter *qrexport.Service
	sessions onboarding.SessionStore
}

func NewHandler(db *gorm.DB, logger *slog.Logger, exporter *qrexport.Service, sessions onboarding.SessionStore) *Handler {
	return &Handler{
		db:       db,
		logger:   logger,
		exporter: exporter,
		sessions: sessions,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeScanCount, h.HandleScanCount)
	mux.HandleFunc(TypeQRExport, h.HandleQRExport)
	mux.HandleFunc(TypeSessionCleanup, h.HandleSessionCleanup)
}

func (h *Handler) HandleScanCount(ctx context.Context, t *asynq.Task) error {
	var payload ScanCountPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	return h.db.WithContext(ctx).
		Model(&models.QRCodeSet{}).
		Where("id = ?", payload.QRCodeSetID).
		UpdateColumn("scan_count", gorm.Expr("scan_count + 1")).Error
}

func (h *Handler) HandleQRExport(ctx context.Context, t *asynq.Task) error {
	var payload QRExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	h.logger.Info("starting qr export",
		"set_id", payload.QRCodeSetID,
		"org_id", payload.OrganizationID,
	)

	count, err := h.exporter.ExportSet(ctx, payload.OrganizationID, payload.QRCodeSetID)
	if err != nil {
		h.logger.Error("qr export failed", "set_id", payload.QRCodeSetID, "error", err)
		return err
	}

	h.logger.Info("qr export completed", "set_id", payload.QRCodeSetID, "images", count)
	return nil
}

func (h *Handler) HandleSessionCleanup(ctx context.Context, t *asynq.Task) error {
	removed, err := h.sessions.Purge(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		h.logger.Info("purged stale onboarding sessions", "count", removed)
	}
	return nil
}
