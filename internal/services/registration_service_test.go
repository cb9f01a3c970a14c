package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/navindus/compreg/internal/models"
)

func seedCompetition(t *testing.T, db *gorm.DB, fee int, limit *int, open bool) (*models.User, *models.RegistrationType) {
	t.Helper()

	role := models.Role{Name: models.RoleParticipant}
	require.NoError(t, db.Create(&role).Error)

	user := models.User{Name: "Kamala Silva", Email: "kamala@example.com", Password: "x", RoleID: role.ID}
	require.NoError(t, db.Create(&user).Error)

	competition := models.Competition{Title: "Design Sprint", Slug: "design-sprint", RegistrationOpen: open, UserID: user.ID}
	require.NoError(t, db.Create(&competition).Error)

	regType := models.RegistrationType{Name: "School Team", Fee: fee, Currency: "LKR", Limit: limit, IsTeam: true, CompetitionID: competition.ID}
	require.NoError(t, db.Create(&regType).Error)

	return &user, &regType
}

func submitInput(regType *models.RegistrationType, method string, entries int) SubmitRegistrationsInput {
	input := SubmitRegistrationsInput{
		CompetitionID:      regType.CompetitionID,
		RegistrationTypeID: regType.ID,
		Country:            "Sri Lanka",
		TeamName:           "Team Alpha",
		PaymentMethod:      method,
	}
	for i := 0; i < entries; i++ {
		input.Entries = append(input.Entries, json.RawMessage(fmt.Sprintf(`{"member":%d}`, i+1)))
	}
	return input
}

func TestSubmitSharesOnePayment(t *testing.T) {
	db := setupTestDB(t)
	user, regType := seedCompetition(t, db, 2500, nil, true)
	svc := NewRegistrationService(db)

	result, err := svc.Submit(user.ID, submitInput(regType, models.PaymentMethodBankTransfer, 2))
	require.NoError(t, err)

	require.Equal(t, 5000, result.Amount)
	require.Equal(t, "LKR", result.Currency)
	require.True(t, strings.HasPrefix(result.OrderID, "ORD-"))
	require.Len(t, result.Registrations, 2)

	year := time.Now().UTC().Year()
	require.Equal(t, fmt.Sprintf("REG-%d-001", year), result.Registrations[0].RegistrationNumber)
	require.Equal(t, fmt.Sprintf("REG-%d-002", year), result.Registrations[1].RegistrationNumber)

	for _, registration := range result.Registrations {
		require.Equal(t, result.PaymentID, *registration.PaymentID)
		require.True(t, strings.HasPrefix(registration.DisplayCode, "PUB-"))
		require.Equal(t, models.RegistrationStatusPending, registration.Status)
		require.Equal(t, models.ParticipantTypeTeam, registration.ParticipantType)
	}
	require.NotEqual(t, result.Registrations[0].DisplayCode, result.Registrations[1].DisplayCode)

	var payment models.Payment
	require.NoError(t, db.First(&payment, "id = ?", result.PaymentID).Error)
	require.Equal(t, models.PaymentStatusPending, payment.Status)
	require.Equal(t, models.PaymentMethodBankTransfer, payment.Method)

	t.Run("numbering continues across submissions", func(t *testing.T) {
		next, err := svc.Submit(user.ID, submitInput(regType, models.PaymentMethodPayHere, 1))
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("REG-%d-003", year), next.Registrations[0].RegistrationNumber)
	})
}

func TestSubmitGuards(t *testing.T) {
	db := setupTestDB(t)
	user, regType := seedCompetition(t, db, 2500, nil, true)
	svc := NewRegistrationService(db)

	t.Run("no entries", func(t *testing.T) {
		input := submitInput(regType, models.PaymentMethodBankTransfer, 0)
		_, err := svc.Submit(user.ID, input)
		require.ErrorIs(t, err, ErrNoEntries)
	})

	t.Run("unsupported method", func(t *testing.T) {
		input := submitInput(regType, "CASH", 1)
		_, err := svc.Submit(user.ID, input)
		require.ErrorIs(t, err, ErrUnsupportedMethod)
	})

	t.Run("unknown registration type", func(t *testing.T) {
		input := submitInput(regType, models.PaymentMethodBankTransfer, 1)
		input.RegistrationTypeID = uuid.New()
		_, err := svc.Submit(user.ID, input)
		require.ErrorIs(t, err, ErrRegistrationTypeNotFound)
	})

	t.Run("closed competition", func(t *testing.T) {
		closed := setupTestDB(t)
		closedUser, closedType := seedCompetition(t, closed, 1000, nil, false)

		// The closed flag must survive the insert; a default tag on the
		// column would make gorm drop the false and store true.
		var competition models.Competition
		require.NoError(t, closed.First(&competition, "id = ?", closedType.CompetitionID).Error)
		require.False(t, competition.RegistrationOpen)

		_, err := NewRegistrationService(closed).Submit(closedUser.ID, submitInput(closedType, models.PaymentMethodBankTransfer, 1))
		require.ErrorIs(t, err, ErrRegistrationClosed)
	})

	t.Run("participant limit", func(t *testing.T) {
		limited := setupTestDB(t)
		limit := 1
		limitedUser, limitedType := seedCompetition(t, limited, 1000, &limit, true)
		_, err := NewRegistrationService(limited).Submit(limitedUser.ID, submitInput(limitedType, models.PaymentMethodBankTransfer, 2))
		require.ErrorIs(t, err, ErrLimitReached)
	})
}

func TestBulkDeleteIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	user, regType := seedCompetition(t, db, 1000, nil, true)
	svc := NewRegistrationService(db)

	result, err := svc.Submit(user.ID, submitInput(regType, models.PaymentMethodBankTransfer, 3))
	require.NoError(t, err)

	ids := []uuid.UUID{result.Registrations[0].ID, result.Registrations[1].ID}

	deleted, err := svc.BulkDelete(ids)
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	deleted, err = svc.BulkDelete(ids)
	require.NoError(t, err)
	require.Equal(t, int64(0), deleted, "re-deleting absent ids must not error")

	deleted, err = svc.BulkDelete([]uuid.UUID{result.Registrations[2].ID, uuid.New()})
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	deleted, err = svc.BulkDelete(nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), deleted)

	// The payment survives as the financial record.
	var payments int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&payments).Error)
	require.Equal(t, int64(1), payments)
}

func TestListFiltersAndStats(t *testing.T) {
	db := setupTestDB(t)
	user, regType := seedCompetition(t, db, 1000, nil, true)
	svc := NewRegistrationService(db)

	first, err := svc.Submit(user.ID, submitInput(regType, models.PaymentMethodBankTransfer, 2))
	require.NoError(t, err)
	_, err = svc.Submit(user.ID, submitInput(regType, models.PaymentMethodPayHere, 1))
	require.NoError(t, err)

	// Confirm the first order's registrations.
	require.NoError(t, db.Model(&models.Registration{}).
		Where("payment_id = ?", first.PaymentID).
		Update("status", models.RegistrationStatusConfirmed).Error)
	require.NoError(t, db.Model(&models.Payment{}).
		Where("id = ?", first.PaymentID).
		Update("status", models.PaymentStatusCompleted).Error)

	t.Run("no filter", func(t *testing.T) {
		registrations, stats, total, err := svc.List(RegistrationFilter{})
		require.NoError(t, err)
		require.Equal(t, int64(3), total)
		require.Len(t, registrations, 3)
		require.Equal(t, int64(3), stats.Total)
		require.Equal(t, int64(2), stats.Confirmed)
		require.Equal(t, int64(1), stats.Pending)
		require.Equal(t, int64(0), stats.Rejected)
	})

	t.Run("status filter", func(t *testing.T) {
		registrations, _, total, err := svc.List(RegistrationFilter{Status: models.RegistrationStatusConfirmed})
		require.NoError(t, err)
		require.Equal(t, int64(2), total)
		require.Len(t, registrations, 2)
	})

	t.Run("payment status filter", func(t *testing.T) {
		registrations, _, total, err := svc.List(RegistrationFilter{PaymentStatus: models.PaymentStatusPending})
		require.NoError(t, err)
		require.Equal(t, int64(1), total)
		require.Len(t, registrations, 1)
		require.NotNil(t, registrations[0].Payment)
		require.Equal(t, models.PaymentStatusPending, registrations[0].Payment.Status)
	})

	t.Run("search by registration number", func(t *testing.T) {
		target := first.Registrations[0].RegistrationNumber
		registrations, _, total, err := svc.List(RegistrationFilter{Search: target})
		require.NoError(t, err)
		require.Equal(t, int64(1), total)
		require.Equal(t, target, registrations[0].RegistrationNumber)
	})

	t.Run("pagination", func(t *testing.T) {
		registrations, _, total, err := svc.List(RegistrationFilter{Page: 1, Limit: 2})
		require.NoError(t, err)
		require.Equal(t, int64(3), total)
		require.Len(t, registrations, 2)
	})

	t.Run("awaiting verification includes slipless submitted orders", func(t *testing.T) {
		slipless, err := svc.Submit(user.ID, submitInput(regType, models.PaymentMethodBankTransfer, 1))
		require.NoError(t, err)

		_, stats, _, err := svc.List(RegistrationFilter{})
		require.NoError(t, err)
		require.Equal(t, int64(1), stats.AwaitingVerification)

		require.NoError(t, db.Model(&models.Payment{}).
			Where("id = ?", slipless.PaymentID).
			Update("slip_path", "uploads/bank_transfers/slip.png").Error)

		_, stats, _, err = svc.List(RegistrationFilter{})
		require.NoError(t, err)
		require.Equal(t, int64(1), stats.AwaitingVerification, "a slip upload must not double-count the order")
	})
}

func TestGenerateDisplayCodeSurfacesQueryErrors(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&models.Registration{}))

	_, err := generateDisplayCode(db)
	require.Error(t, err)
}
