package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/navindus/compreg/internal/middleware"
	"github.com/navindus/compreg/internal/models"
)

func setupHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Competition{},
		&models.RegistrationType{},
		&models.Payment{},
		&models.Registration{},
		&models.PaymentEvent{},
	))
	return db
}

type adminFixture struct {
	admin        models.User
	payment      models.Payment
	registration models.Registration
}

func seedAdminFixture(t *testing.T, db *gorm.DB) *adminFixture {
	t.Helper()

	role := models.Role{Name: models.RoleAdmin}
	require.NoError(t, db.Create(&role).Error)

	f := &adminFixture{}
	f.admin = models.User{Name: "Admin", Email: "admin@example.com", Password: "x", RoleID: role.ID}
	require.NoError(t, db.Create(&f.admin).Error)

	registrant := models.User{Name: "Registrant", Email: "reg@example.com", Password: "x", RoleID: role.ID}
	require.NoError(t, db.Create(&registrant).Error)

	competition := models.Competition{Title: "Robotics Challenge", Slug: "robotics", RegistrationOpen: true, UserID: f.admin.ID}
	require.NoError(t, db.Create(&competition).Error)

	regType := models.RegistrationType{Name: "Open", Fee: 5000, Currency: "LKR", CompetitionID: competition.ID}
	require.NoError(t, db.Create(&regType).Error)

	f.payment = models.Payment{
		OrderID:  "ORD-1700000000-0001",
		Amount:   5000,
		Currency: "LKR",
		Method:   models.PaymentMethodBankTransfer,
		Status:   models.PaymentStatusPending,
		UserID:   registrant.ID,
	}
	require.NoError(t, db.Create(&f.payment).Error)

	f.registration = models.Registration{
		RegistrationNumber: "REG-2024-001",
		DisplayCode:        "PUB-ABC234",
		Status:             models.RegistrationStatusPending,
		SubmissionStatus:   models.SubmissionStatusSubmitted,
		ParticipantType:    models.ParticipantTypeIndividual,
		Members:            datatypes.JSON(`{"fullName":"Registrant"}`),
		UserID:             registrant.ID,
		CompetitionID:      competition.ID,
		RegistrationTypeID: regType.ID,
		PaymentID:          &f.payment.ID,
	}
	require.NoError(t, db.Create(&f.registration).Error)

	return f
}

func adminRouter(db *gorm.DB, adminID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(func(c *gin.Context) {
		c.Set("user_id", adminID)
		c.Set("role", models.RoleAdmin)
	})
	r.POST("/v1/admin/payments/verify", VerifyPayment)
	r.POST("/v1/admin/payments/revert", RevertPayment)
	r.POST("/v1/admin/registrations/delete", DeleteRegistrations)
	r.GET("/v1/admin/registrations", ListRegistrations)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	jsonBody, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVerifyPaymentEndpoint(t *testing.T) {
	db := setupHandlerDB(t)
	f := seedAdminFixture(t, db)
	r := adminRouter(db, f.admin.ID)

	w := postJSON(t, r, "/v1/admin/payments/verify", gin.H{
		"payment_id":      f.payment.ID,
		"registration_id": f.registration.ID,
		"approve":         true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, true, resp["success"])

	var payment models.Payment
	require.NoError(t, db.First(&payment, "id = ?", f.payment.ID).Error)
	require.Equal(t, models.PaymentStatusCompleted, payment.Status)

	t.Run("second decision conflicts", func(t *testing.T) {
		w := postJSON(t, r, "/v1/admin/payments/verify", gin.H{
			"payment_id":    f.payment.ID,
			"approve":       false,
			"reject_reason": "changed my mind",
		})
		require.Equal(t, http.StatusConflict, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, false, resp["success"])
	})

	t.Run("registration from another order is rejected", func(t *testing.T) {
		w := postJSON(t, r, "/v1/admin/payments/verify", gin.H{
			"payment_id":      f.payment.ID,
			"registration_id": uuid.New(),
			"approve":         true,
		})
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing approve flag fails binding", func(t *testing.T) {
		w := postJSON(t, r, "/v1/admin/payments/verify", gin.H{
			"payment_id": f.payment.ID,
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRevertPaymentEndpoint(t *testing.T) {
	db := setupHandlerDB(t)
	f := seedAdminFixture(t, db)
	r := adminRouter(db, f.admin.ID)

	w := postJSON(t, r, "/v1/admin/payments/verify", gin.H{
		"payment_id": f.payment.ID,
		"approve":    true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, r, "/v1/admin/payments/revert", gin.H{
		"payment_id":    f.payment.ID,
		"revert_reason": "verified against wrong slip",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var payment models.Payment
	require.NoError(t, db.First(&payment, "id = ?", f.payment.ID).Error)
	require.Equal(t, models.PaymentStatusPending, payment.Status)

	t.Run("revert of a pending payment conflicts", func(t *testing.T) {
		w := postJSON(t, r, "/v1/admin/payments/revert", gin.H{
			"payment_id": f.payment.ID,
		})
		require.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestDeleteRegistrationsEndpoint(t *testing.T) {
	db := setupHandlerDB(t)
	f := seedAdminFixture(t, db)
	r := adminRouter(db, f.admin.ID)

	w := postJSON(t, r, "/v1/admin/registrations/delete", gin.H{
		"registration_ids": []string{f.registration.ID.String()},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, true, resp["success"])
	require.Equal(t, float64(1), resp["deleted_count"])

	t.Run("re-delete reports zero without error", func(t *testing.T) {
		w := postJSON(t, r, "/v1/admin/registrations/delete", gin.H{
			"registration_ids": []string{f.registration.ID.String()},
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, float64(0), resp["deleted_count"])
	})

	t.Run("malformed id", func(t *testing.T) {
		w := postJSON(t, r, "/v1/admin/registrations/delete", gin.H{
			"registration_ids": []string{"not-a-uuid"},
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListRegistrationsEndpoint(t *testing.T) {
	db := setupHandlerDB(t)
	f := seedAdminFixture(t, db)
	r := adminRouter(db, f.admin.ID)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/registrations", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Registrations []models.Registration `json:"registrations"`
			Stats         struct {
				Total     int64 `json:"total"`
				Pending   int64 `json:"pending"`
				Confirmed int64 `json:"confirmed"`
			} `json:"stats"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Data.Registrations, 1)
	require.Equal(t, int64(1), resp.Data.Stats.Total)
	require.Equal(t, int64(1), resp.Data.Stats.Pending)

	t.Run("confirmed count moves after approval", func(t *testing.T) {
		w := postJSON(t, r, "/v1/admin/payments/verify", gin.H{
			"payment_id": f.payment.ID,
			"approve":    true,
		})
		require.Equal(t, http.StatusOK, w.Code)

		req := httptest.NewRequest(http.MethodGet, "/v1/admin/registrations", nil)
		w2 := httptest.NewRecorder()
		r.ServeHTTP(w2, req)
		require.Equal(t, http.StatusOK, w2.Code)
		require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &resp))
		require.Equal(t, int64(1), resp.Data.Stats.Confirmed)
		require.Equal(t, int64(0), resp.Data.Stats.Pending)
	})
}
