// Package checkin implements the check-in token state machine:
// active -> used via ProcessCheckIn, used -> active via UndoCheckIn.
// Transitions are conditional updates so concurrent scanners race safely.
package checkin

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rvegajr/blessbox-server/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrInvalidToken     = errors.New("invalid check-in token")
	ErrAlreadyCheckedIn = errors.New("registration already checked in")
	ErrNotCheckedIn     = errors.New("registration is not checked in")
)

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// ProcessCheckIn transitions the token to used and records who and when.
// When two staff scan the same token concurrently, the conditional update
// lets exactly one win; the loser sees ErrAlreadyCheckedIn and the first
// check-in's checkedInAt/checkedInBy stay untouched.
func (s *Service) ProcessCheckIn(ctx context.Context, token string, staffID uuid.UUID) (*models.Registration, error) {
	now := s.db.NowFunc()
	res := s.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("check_in_token = ? AND token_status = ?", token, models.TokenActive).
		Updates(map[string]interface{}{
			"token_status":  models.TokenUsed,
			"checked_in_at": now,
			"checked_in_by": staffID,
		})
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		// Distinguish an unknown token from a token already used.
		_, err := s.GetByToken(ctx, token)
		if err != nil {
			return nil, err
		}
		return nil, ErrAlreadyCheckedIn
	}

	reg, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	s.logger.Info("registration checked in",
		"registration_id", reg.ID,
		"staff_id", staffID,
	)
	return reg, nil
}

// UndoCheckIn reverses a mis-scan: resets the token to active and clears
// the check-in record. Only legal when the token has been used.
func (s *Service) UndoCheckIn(ctx context.Context, token string) (*models.Registration, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("check_in_token = ? AND token_status = ?", token, models.TokenUsed).
		Updates(map[string]interface{}{
			"token_status":  models.TokenActive,
			"checked_in_at": nil,
			"checked_in_by": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		_, err := s.GetByToken(ctx, token)
		if err != nil {
			return nil, err
		}
		return nil, ErrNotCheckedIn
	}

	reg, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	s.logger.Info("check-in undone", "registration_id", reg.ID)
	return reg, nil
}

// GetByToken is a pure read used to render the confirmation screen before
// committing a check-in. It never mutates state.
func (s *Service) GetByToken(ctx context.Context, token string) (*models.Registration, error) {
	var reg models.Registration
	if err := s.db.WithContext(ctx).
		Where("check_in_token = ?", token).
		First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return &reg, nil
}
