package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/navindus/compreg/internal/helpers"
	"github.com/navindus/compreg/internal/models"
	"github.com/navindus/compreg/internal/services"
)

type SubmitRegistrationsRequest struct {
	CompetitionID      uuid.UUID         `json:"competition_id" binding:"required"`
	RegistrationTypeID uuid.UUID         `json:"registration_type_id" binding:"required"`
	ParticipantType    string            `json:"participant_type"`
	Country            string            `json:"country"`
	TeamName           string            `json:"team_name"`
	CompanyName        string            `json:"company_name"`
	PaymentMethod      string            `json:"payment_method" binding:"required"`
	Entries            []json.RawMessage `json:"entries" binding:"required"`
}

func SubmitRegistrations(c *gin.Context) {
	var req SubmitRegistrationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	service := services.NewRegistrationService(gormDB)
	result, err := service.Submit(userID.(uuid.UUID), services.SubmitRegistrationsInput{
		CompetitionID:      req.CompetitionID,
		RegistrationTypeID: req.RegistrationTypeID,
		ParticipantType:    req.ParticipantType,
		Country:            req.Country,
		TeamName:           req.TeamName,
		CompanyName:        req.CompanyName,
		PaymentMethod:      req.PaymentMethod,
		Entries:            req.Entries,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRegistrationTypeNotFound):
			helpers.RespondWithError(c, http.StatusNotFound, "Registration type not found.")
		case errors.Is(err, services.ErrRegistrationClosed):
			helpers.RespondWithError(c, http.StatusForbidden, "Registration is closed for this competition.")
		case errors.Is(err, services.ErrNoEntries), errors.Is(err, services.ErrUnsupportedMethod):
			helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrLimitReached):
			helpers.RespondWithError(c, http.StatusConflict, "Participant limit reached for this registration type.")
		default:
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to submit registrations.")
		}
		return
	}

	response := gin.H{
		"message": "Registrations submitted successfully.",
		"result":  result,
	}
	// Bank transfer slips may also be sent over WhatsApp instead of the
	// upload endpoint; hand the registrant the deep link.
	if req.PaymentMethod == models.PaymentMethodBankTransfer {
		if link := helpers.WhatsAppLink(os.Getenv("SUPPORT_WHATSAPP")); link != "" {
			response["whatsapp_link"] = link
		}
	}

	c.JSON(http.StatusCreated, response)
}

func ListMyRegistrations(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	service := services.NewRegistrationService(gormDB)
	registrations, err := service.ListForUser(userID.(uuid.UUID))
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving registrations.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"registrations": registrations,
	})
}

// UploadPaymentSlip attaches a bank transfer proof to the caller's own
// pending payment. A payment with no slip stays in the whatsapp-only
// lane on the dashboard.
func UploadPaymentSlip(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid payment ID.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var payment models.Payment
	if err := gormDB.First(&payment, "id = ?", paymentID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Payment not found.")
		return
	}

	if payment.UserID != userID {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to upload a slip for this payment.")
		return
	}

	if payment.Method != models.PaymentMethodBankTransfer {
		helpers.RespondWithError(c, http.StatusBadRequest, "Slips are only accepted for bank transfer payments.")
		return
	}

	if payment.Status != models.PaymentStatusPending {
		helpers.RespondWithError(c, http.StatusConflict, "Payment has already been verified.")
		return
	}

	slipFile, err := c.FormFile("slip")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Slip file is required.")
		return
	}

	slipPath, err := helpers.UploadFile(c, slipFile, "bank_transfers")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	if payment.SlipPath != nil {
		if err := helpers.DeleteFile(*payment.SlipPath); err != nil {
			fmt.Printf("Error deleting old slip: %v\n", err)
		}
	}

	if err := gormDB.Model(&payment).Update("slip_path", slipPath).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to save slip.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Slip uploaded successfully.",
	})
}

func registrationQRData(registration *models.Registration) string {
	signature := registrationSignature(registration.ID, registration.DisplayCode, os.Getenv("JWT_SECRET"))
	return fmt.Sprintf("reg:%s;code:%s;signature:%s",
		registration.ID.String(),
		registration.DisplayCode,
		signature,
	)
}

func registrationSignature(registrationID uuid.UUID, displayCode, secretKey string) string {
	data := fmt.Sprintf("%s:%s", registrationID.String(), displayCode)
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// RegistrationQR renders a signed check-in pass carrying the display
// code, never the internal registration number.
func RegistrationQR(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	registrationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid registration ID.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var registration models.Registration
	if err := gormDB.First(&registration, "id = ?", registrationID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Registration not found.")
		return
	}

	role, _ := c.Get("role")
	if registration.UserID != userID && role != models.RoleAdmin {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to view this registration's QR code.")
		return
	}

	qrImage, err := qrcode.Encode(registrationQRData(&registration), qrcode.Medium, 256)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate QR code.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}
