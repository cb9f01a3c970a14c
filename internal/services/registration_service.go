package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/navindus/compreg/internal/models"
)

var (
	ErrRegistrationTypeNotFound = errors.New("registration type not found")
	ErrRegistrationClosed       = errors.New("registration is closed for this competition")
	ErrNoEntries                = errors.New("at least one entry is required")
	ErrUnsupportedMethod        = errors.New("unsupported payment method")
	ErrLimitReached             = errors.New("participant limit reached for this registration type")
)

const displayCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type RegistrationService struct {
	db *gorm.DB
}

func NewRegistrationService(db *gorm.DB) *RegistrationService {
	return &RegistrationService{db: db}
}

type SubmitRegistrationsInput struct {
	CompetitionID      uuid.UUID
	RegistrationTypeID uuid.UUID
	ParticipantType    string
	Country            string
	TeamName           string
	CompanyName        string
	PaymentMethod      string
	Entries            []json.RawMessage
}

type SubmitResult struct {
	PaymentID     uuid.UUID             `json:"payment_id"`
	OrderID       string                `json:"order_id"`
	Amount        int                   `json:"amount"`
	Currency      string                `json:"currency"`
	Registrations []models.Registration `json:"registrations"`
}

// Submit creates one registration per entry, all sharing a single new
// PENDING payment for fee x entries, in one transaction.
func (s *RegistrationService) Submit(userID uuid.UUID, input SubmitRegistrationsInput) (*SubmitResult, error) {
	if len(input.Entries) == 0 {
		return nil, ErrNoEntries
	}
	if input.PaymentMethod != models.PaymentMethodPayHere && input.PaymentMethod != models.PaymentMethodBankTransfer {
		return nil, ErrUnsupportedMethod
	}

	var registrationType models.RegistrationType
	err := s.db.Preload("Competition").
		Where("id = ? AND competition_id = ?", input.RegistrationTypeID, input.CompetitionID).
		First(&registrationType).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationTypeNotFound
		}
		return nil, err
	}

	if !registrationType.Competition.RegistrationOpen {
		return nil, ErrRegistrationClosed
	}

	if registrationType.Limit != nil {
		var existing int64
		if err := s.db.Model(&models.Registration{}).
			Where("registration_type_id = ?", registrationType.ID).
			Count(&existing).Error; err != nil {
			return nil, err
		}
		if existing+int64(len(input.Entries)) > int64(*registrationType.Limit) {
			return nil, ErrLimitReached
		}
	}

	participantType := input.ParticipantType
	if participantType == "" {
		participantType = models.ParticipantTypeIndividual
		if registrationType.IsTeam {
			participantType = models.ParticipantTypeTeam
		}
	}

	result := &SubmitResult{
		Amount:   registrationType.Fee * len(input.Entries),
		Currency: registrationType.Currency,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		payment := models.Payment{
			OrderID:  newOrderID(),
			Amount:   result.Amount,
			Currency: result.Currency,
			Method:   input.PaymentMethod,
			Status:   models.PaymentStatusPending,
			UserID:   userID,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		result.PaymentID = payment.ID
		result.OrderID = payment.OrderID

		year := time.Now().UTC().Year()
		sequence, err := nextSequence(tx, year)
		if err != nil {
			return err
		}

		for i, entry := range input.Entries {
			displayCode, err := generateDisplayCode(tx)
			if err != nil {
				return err
			}
			registration := models.Registration{
				RegistrationNumber: fmt.Sprintf("REG-%d-%03d", year, sequence+i),
				DisplayCode:        displayCode,
				Status:             models.RegistrationStatusPending,
				SubmissionStatus:   models.SubmissionStatusSubmitted,
				ParticipantType:    participantType,
				Country:            input.Country,
				TeamName:           input.TeamName,
				CompanyName:        input.CompanyName,
				Members:            datatypes.JSON(entry),
				UserID:             userID,
				CompetitionID:      input.CompetitionID,
				RegistrationTypeID: registrationType.ID,
				PaymentID:          &payment.ID,
			}
			if err := tx.Create(&registration).Error; err != nil {
				return err
			}
			result.Registrations = append(result.Registrations, registration)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// nextSequence finds the highest registration number issued this year.
// Zero-padding keeps lexical and numeric ordering aligned up to 999;
// beyond that the padding just widens.
func nextSequence(tx *gorm.DB, year int) (int, error) {
	prefix := fmt.Sprintf("REG-%d-", year)

	var last models.Registration
	err := tx.Unscoped().
		Where("registration_number LIKE ?", prefix+"%").
		Order("length(registration_number) DESC, registration_number DESC").
		First(&last).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 1, nil
		}
		return 0, err
	}

	seq, err := strconv.Atoi(strings.TrimPrefix(last.RegistrationNumber, prefix))
	if err != nil {
		return 0, fmt.Errorf("malformed registration number %q", last.RegistrationNumber)
	}
	return seq + 1, nil
}

func generateDisplayCode(tx *gorm.DB) (string, error) {
	for {
		code := make([]byte, 6)
		for i := range code {
			code[i] = displayCodeCharset[rand.Intn(len(displayCodeCharset))]
		}
		candidate := "PUB-" + string(code)

		var count int64
		if err := tx.Unscoped().Model(&models.Registration{}).
			Where("display_code = ?", candidate).
			Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
	}
}

func newOrderID() string {
	return fmt.Sprintf("ORD-%d-%04X", time.Now().Unix(), rand.Intn(0x10000))
}

type RegistrationFilter struct {
	CompetitionID string
	Status        string
	PaymentStatus string
	Search        string
	Page          int
	Limit         int
}

type RegistrationStats struct {
	Total                int64 `json:"total"`
	Pending              int64 `json:"pending"`
	Confirmed            int64 `json:"confirmed"`
	Rejected             int64 `json:"rejected"`
	AwaitingVerification int64 `json:"awaiting_verification"`
}

// List returns registrations for the admin dashboard with the overall
// stats the status cards show. Limit <= 0 disables pagination (used by
// the export endpoint).
func (s *RegistrationService) List(filter RegistrationFilter) ([]models.Registration, RegistrationStats, int64, error) {
	query := s.filtered(filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, RegistrationStats{}, 0, err
	}

	find := s.filtered(filter).
		Preload("User").
		Preload("Competition").
		Preload("RegistrationType").
		Preload("Payment").
		Order("registrations.created_at DESC")
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		find = find.Offset((page - 1) * filter.Limit).Limit(filter.Limit)
	}

	var registrations []models.Registration
	if err := find.Find(&registrations).Error; err != nil {
		return nil, RegistrationStats{}, 0, err
	}

	stats, err := s.stats(filter.CompetitionID)
	if err != nil {
		return nil, RegistrationStats{}, 0, err
	}

	return registrations, stats, total, nil
}

func (s *RegistrationService) filtered(filter RegistrationFilter) *gorm.DB {
	query := s.db.Model(&models.Registration{})

	if filter.CompetitionID != "" {
		query = query.Where("registrations.competition_id = ?", filter.CompetitionID)
	}
	if filter.Status != "" {
		query = query.Where("registrations.status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Joins("JOIN payments ON payments.id = registrations.payment_id").
			Where("payments.status = ?", filter.PaymentStatus)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(
			"registrations.registration_number LIKE ? OR registrations.display_code LIKE ? OR registrations.team_name LIKE ?",
			pattern, pattern, pattern,
		)
	}

	return query
}

func (s *RegistrationService) stats(competitionID string) (RegistrationStats, error) {
	var stats RegistrationStats

	base := func() *gorm.DB {
		q := s.db.Model(&models.Registration{})
		if competitionID != "" {
			q = q.Where("competition_id = ?", competitionID)
		}
		return q
	}

	if err := base().Count(&stats.Total).Error; err != nil {
		return stats, err
	}
	if err := base().Where("status = ?", models.RegistrationStatusPending).Count(&stats.Pending).Error; err != nil {
		return stats, err
	}
	if err := base().Where("status = ?", models.RegistrationStatusConfirmed).Count(&stats.Confirmed).Error; err != nil {
		return stats, err
	}
	if err := base().Where("status = ?", models.RegistrationStatusRejected).Count(&stats.Rejected).Error; err != nil {
		return stats, err
	}

	// A pending bank transfer awaits verification once it has a slip or
	// its registrations were submitted (the whatsapp-only lane uploads
	// nothing).
	err := s.db.Model(&models.Payment{}).
		Where("payments.status = ? AND payments.method = ?",
			models.PaymentStatusPending, models.PaymentMethodBankTransfer).
		Where("payments.slip_path IS NOT NULL OR EXISTS (SELECT 1 FROM registrations WHERE registrations.payment_id = payments.id AND registrations.submission_status = ?)",
			models.SubmissionStatusSubmitted).
		Count(&stats.AwaitingVerification).Error
	return stats, err
}

// ListForUser returns the caller's own registrations for the
// participant dashboard.
func (s *RegistrationService) ListForUser(userID uuid.UUID) ([]models.Registration, error) {
	var registrations []models.Registration
	err := s.db.
		Preload("Competition").
		Preload("RegistrationType").
		Preload("Payment").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&registrations).Error
	return registrations, err
}

// BulkDelete permanently removes the given registrations. Ids that are
// already gone are skipped, so re-deleting is not an error; the caller
// gets the actual count removed.
func (s *RegistrationService) BulkDelete(ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result := s.db.Unscoped().Where("id IN ?", ids).Delete(&models.Registration{})
	return result.RowsAffected, result.Error
}
