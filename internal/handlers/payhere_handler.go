package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/navindus/compreg/config"
	"github.com/navindus/compreg/internal/helpers"
	"github.com/navindus/compreg/internal/services"
)

// PayHere status codes: 2 success, 0 pending, -1 canceled, -2 failed,
// -3 chargedback.

// PayHereNotify handles the gateway's server-to-server callback for
// PAYHERE payments. These are verified by signature, not by an admin.
func PayHereNotify(c *gin.Context) {
	merchantID := c.PostForm("merchant_id")
	orderID := c.PostForm("order_id")
	amount := c.PostForm("payhere_amount")
	currency := c.PostForm("payhere_currency")
	statusCode := c.PostForm("status_code")
	md5sig := c.PostForm("md5sig")

	cfg := config.LoadPayHereConfig()
	if cfg.MerchantID == "" || merchantID != cfg.MerchantID {
		helpers.RespondWithError(c, http.StatusBadRequest, "Unknown merchant.")
		return
	}

	if !helpers.VerifyPayHereSig(merchantID, orderID, amount, currency, statusCode, cfg.MerchantSecret, md5sig) {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid signature.")
		return
	}

	var succeeded bool
	switch statusCode {
	case "2":
		succeeded = true
	case "-2", "-3":
		succeeded = false
	default:
		// Pending or canceled; nothing to record yet.
		c.JSON(http.StatusOK, gin.H{"message": "OK"})
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	service := services.NewPaymentService(gormDB, config.NotifyEndpoint())
	if err := service.CompleteFromGateway(orderID, succeeded, statusCode); err != nil {
		switch {
		case errors.Is(err, services.ErrPaymentNotFound):
			helpers.RespondWithError(c, http.StatusNotFound, "Payment not found.")
		case errors.Is(err, services.ErrNotGatewayPayment):
			helpers.RespondWithError(c, http.StatusUnprocessableEntity, "Payment was not made through the gateway.")
		case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrStatusConflict):
			helpers.RespondWithError(c, http.StatusConflict, "Payment status does not allow this update.")
		default:
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update payment.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OK"})
}
