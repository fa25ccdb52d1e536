// Package registration implements attendee submission: org/QR resolution,
// schema validation, quota reservation, and check-in token issuance.
package registration

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rvegajr/blessbox-server/internal/database/models"
	"github.com/rvegajr/blessbox-server/internal/forms"
	"github.com/rvegajr/blessbox-server/internal/odata"
	"github.com/rvegajr/blessbox-server/internal/tasks"
	"github.com/rvegajr/blessbox-server/pkg/crypto"
	"gorm.io/gorm"
)

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrFormNotFound         = errors.New("form not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrInvalidDeliveryState = errors.New("invalid delivery status")
)

// LimitExceededError is the distinguished quota failure: it carries the
// counters and upgrade link the API surfaces with a 403, not a generic 400.
type LimitExceededError struct {
	CurrentCount int
	Limit        int
	UpgradeURL   string
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("registration limit exceeded: %d of %d used", e.CurrentCount, e.Limit)
}

const tokenBytes = 16 // 128 bits of entropy
const tokenRetries = 5

// NewCheckInToken returns a cryptographically random hex token.
func NewCheckInToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

type Service struct {
	db        *gorm.DB
	encryptor *crypto.Encryptor
	queue     *asynq.Client
	logger    *slog.Logger
}

func NewService(db *gorm.DB, encryptor *crypto.Encryptor, queue *asynq.Client, logger *slog.Logger) *Service {
	return &Service{db: db, encryptor: encryptor, queue: queue, logger: logger}
}

// Metadata carries request provenance recorded alongside a submission.
type Metadata struct {
	IPAddress string
	UserAgent string
	Referrer  string
}

type SubmitInput struct {
	OrgSlug  string
	QRLabel  string
	FormData map[string]interface{}
	Meta     Metadata
}

// Submit validates and stores one registration. Every call creates a new
// row; dedup across identical submissions is the caller's concern.
//
// The quota reservation and the insert run in one transaction: the counter
// is bumped by a conditional update guarded by the plan limit, so concurrent
// submissions near the limit cannot over-admit. Tokens are issued eagerly at
// submission and checked for uniqueness before commit.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*models.Registration, error) {
	var org models.Organization
	if err := s.db.WithContext(ctx).
		Where("slug = ? AND is_active = ?", input.OrgSlug, true).
		First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, err
	}

	set, entry, err := s.resolveEntry(ctx, org.ID, input.QRLabel)
	if err != nil {
		return nil, err
	}

	fields, err := forms.DecodeFields(set.FormFields)
	if err != nil {
		return nil, err
	}
	cleaned, err := forms.ValidateSubmission(fields, input.FormData)
	if err != nil {
		return nil, err
	}

	plaintext, err := json.Marshal(cleaned)
	if err != nil {
		return nil, err
	}
	encrypted, err := s.encryptor.EncryptString(string(plaintext))
	if err != nil {
		return nil, fmt.Errorf("encrypting registration data: %w", err)
	}

	var reg models.Registration
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Subscription{}).
			Where("organization_id = ? AND registration_count < registration_limit", org.ID).
			UpdateColumn("registration_count", gorm.Expr("registration_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var sub models.Subscription
			if err := tx.Where("organization_id = ?", org.ID).First(&sub).Error; err != nil {
				return err
			}
			return &LimitExceededError{
				CurrentCount: sub.RegistrationCount,
				Limit:        sub.RegistrationLimit,
				UpgradeURL:   sub.UpgradeURL,
			}
		}

		token, err := s.uniqueToken(tx)
		if err != nil {
			return err
		}

		reg = models.Registration{
			OrganizationID:   org.ID,
			QRCodeSetID:      set.ID,
			QRCodeID:         entry.ID,
			RegistrationData: encrypted,
			IPAddress:        input.Meta.IPAddress,
			UserAgent:        input.Meta.UserAgent,
			Referrer:         input.Meta.Referrer,
			DeliveryStatus:   models.DeliveryPending,
			CheckInToken:     token,
			TokenStatus:      models.TokenActive,
			RegisteredAt:     tx.NowFunc(),
		}
		return tx.Create(&reg).Error
	})
	if err != nil {
		return nil, err
	}

	s.enqueueScanCount(set.ID)

	return &reg, nil
}

// resolveEntry finds the active set owning an active QR entry with the
// given label or slug.
func (s *Service) resolveEntry(ctx context.Context, orgID uuid.UUID, label string) (*models.QRCodeSet, *models.QRCodeEntry, error) {
	var sets []models.QRCodeSet
	if err := s.db.WithContext(ctx).
		Where("organization_id = ? AND is_active = ?", orgID, true).
		Find(&sets).Error; err != nil {
		return nil, nil, err
	}

	for i := range sets {
		if entry, ok := sets[i].FindEntry(label); ok {
			return &sets[i], entry, nil
		}
	}
	return nil, nil, ErrFormNotFound
}

func (s *Service) uniqueToken(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < tokenRetries; attempt++ {
		token, err := NewCheckInToken()
		if err != nil {
			return "", err
		}
		var count int64
		if err := tx.Model(&models.Registration{}).
			Where("check_in_token = ?", token).
			Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return token, nil
		}
	}
	return "", errors.New("could not generate a unique check-in token")
}

func (s *Service) enqueueScanCount(setID uuid.UUID) {
	if s.queue == nil {
		return
	}
	task, err := tasks.NewScanCountTask(tasks.ScanCountPayload{QRCodeSetID: setID})
	if err != nil {
		s.logger.Error("building scan count task", "error", err)
		return
	}
	if _, err := s.queue.Enqueue(task); err != nil {
		s.logger.Warn("enqueueing scan count task", "set_id", setID, "error", err)
	}
}

// List returns registrations for one organization with the OData descriptor
// applied: filter, sort, skip, top. When q.Count is set, total holds the
// filtered but unpaginated count.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, q odata.Query) ([]models.Registration, *int64, error) {
	var total *int64
	if q.Count {
		var n int64
		counter := odata.ApplyFilter(
			s.db.WithContext(ctx).Model(&models.Registration{}).Where("organization_id = ?", orgID), q)
		if err := counter.Count(&n).Error; err != nil {
			return nil, nil, err
		}
		total = &n
	}

	var regs []models.Registration
	query := odata.Apply(
		s.db.WithContext(ctx).Model(&models.Registration{}).Where("organization_id = ?", orgID), q)
	if err := query.Find(&regs).Error; err != nil {
		return nil, nil, err
	}

	return regs, total, nil
}

// UpdateDelivery moves the business-fulfillment axis; check-in state is
// untouched.
func (s *Service) UpdateDelivery(ctx context.Context, orgID, regID uuid.UUID, status models.DeliveryStatus) (*models.Registration, error) {
	switch status {
	case models.DeliveryPending, models.DeliveryDelivered, models.DeliveryCancelled:
	default:
		return nil, ErrInvalidDeliveryState
	}

	var reg models.Registration
	if err := s.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", regID, orgID).
		First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{"delivery_status": status}
	if status == models.DeliveryDelivered {
		updates["delivered_at"] = s.db.NowFunc()
	} else {
		updates["delivered_at"] = nil
	}

	if err := s.db.WithContext(ctx).Model(&reg).Updates(updates).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).First(&reg, reg.ID).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

// Usage reports the organization's quota counters for the dashboard.
func (s *Service) Usage(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// DecryptData decodes a registration's stored form answers for responses.
func (s *Service) DecryptData(reg *models.Registration) (map[string]interface{}, error) {
	if reg.RegistrationData == "" {
		return map[string]interface{}{}, nil
	}
	plaintext, err := s.encryptor.DecryptString(reg.RegistrationData)
	if err != nil {
		return nil, fmt.Errorf("decrypting registration data: %w", err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(plaintext), &data); err != nil {
		return nil, err
	}
	return data, nil
}
