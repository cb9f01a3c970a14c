package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/navindus/compreg/config"
	"github.com/navindus/compreg/internal/helpers"
	"github.com/navindus/compreg/internal/models"
	"github.com/navindus/compreg/internal/services"
)

type VerifyPaymentRequest struct {
	PaymentID      uuid.UUID  `json:"payment_id" binding:"required"`
	RegistrationID *uuid.UUID `json:"registration_id"`
	Approve        *bool      `json:"approve" binding:"required"`
	RejectReason   string     `json:"reject_reason"`
}

type RevertPaymentRequest struct {
	PaymentID      uuid.UUID  `json:"payment_id" binding:"required"`
	RegistrationID *uuid.UUID `json:"registration_id"`
	RevertReason   string     `json:"revert_reason"`
}

// registrationMatchesPayment guards against a stale dashboard sending a
// registration id that belongs to a different order.
func registrationMatchesPayment(gormDB *gorm.DB, registrationID, paymentID uuid.UUID) bool {
	var count int64
	gormDB.Model(&models.Registration{}).
		Where("id = ? AND payment_id = ?", registrationID, paymentID).
		Count(&count)
	return count > 0
}

func respondWorkflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPaymentNotFound):
		helpers.RespondWithFailure(c, http.StatusNotFound, "Payment not found.")
	case errors.Is(err, services.ErrNotBankTransfer):
		helpers.RespondWithFailure(c, http.StatusUnprocessableEntity, "Only bank transfer payments are verified manually.")
	case errors.Is(err, services.ErrInvalidTransition):
		helpers.RespondWithFailure(c, http.StatusConflict, "Payment status does not allow this action.")
	case errors.Is(err, services.ErrStatusConflict):
		helpers.RespondWithFailure(c, http.StatusConflict, "Payment was updated by another admin. Refresh and try again.")
	default:
		helpers.RespondWithFailure(c, http.StatusInternalServerError, "Failed to update payment.")
	}
}

func VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithFailure(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithFailure(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithFailure(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	if req.RegistrationID != nil && !registrationMatchesPayment(gormDB, *req.RegistrationID, req.PaymentID) {
		helpers.RespondWithFailure(c, http.StatusNotFound, "Registration does not belong to this payment.")
		return
	}

	service := services.NewPaymentService(gormDB, config.NotifyEndpoint())
	if err := service.Verify(req.PaymentID, userID.(uuid.UUID), *req.Approve, req.RejectReason); err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func RevertPayment(c *gin.Context) {
	var req RevertPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithFailure(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithFailure(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithFailure(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	if req.RegistrationID != nil && !registrationMatchesPayment(gormDB, *req.RegistrationID, req.PaymentID) {
		helpers.RespondWithFailure(c, http.StatusNotFound, "Registration does not belong to this payment.")
		return
	}

	service := services.NewPaymentService(gormDB, config.NotifyEndpoint())
	if err := service.Revert(req.PaymentID, userID.(uuid.UUID), req.RevertReason); err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
