package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/navindus/compreg/internal/models"
)

var (
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrNotBankTransfer   = errors.New("only bank transfer payments are verified manually")
	ErrNotGatewayPayment = errors.New("payment was not made through the gateway")
	ErrInvalidTransition = errors.New("payment status does not allow this action")
	ErrStatusConflict    = errors.New("payment status was changed concurrently")
)

// PaymentService owns the verification state machine:
// PENDING -> COMPLETED | FAILED (verify / gateway notify) and
// COMPLETED | FAILED -> PENDING (revert). Every transition appends a
// PaymentEvent row and merges the legacy metadata keys the dashboard
// still reads.
type PaymentService struct {
	db             *gorm.DB
	notifyEndpoint string
	client         *http.Client
}

func NewPaymentService(db *gorm.DB, notifyEndpoint string) *PaymentService {
	return &PaymentService{
		db:             db,
		notifyEndpoint: notifyEndpoint,
		client:         &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify approves or rejects a pending bank transfer. The status update
// is conditional on the payment still being PENDING, so two admins
// acting on the same payment get one success and one conflict.
func (s *PaymentService) Verify(paymentID, actorID uuid.UUID, approve bool, rejectReason string) error {
	var payment models.Payment
	if err := s.db.Preload("User").First(&payment, "id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentNotFound
		}
		return err
	}

	if payment.Method != models.PaymentMethodBankTransfer {
		return ErrNotBankTransfer
	}
	if payment.Status != models.PaymentStatusPending {
		return ErrInvalidTransition
	}

	now := time.Now().UTC()
	target := models.PaymentStatusCompleted
	registrationStatus := models.RegistrationStatusConfirmed
	action := models.PaymentActionApproved
	completedAt := &now
	if !approve {
		target = models.PaymentStatusFailed
		registrationStatus = models.RegistrationStatusRejected
		action = models.PaymentActionRejected
		completedAt = nil
	}

	extra := map[string]interface{}{
		"verifiedBy": actorID.String(),
		"verifiedAt": now.Format(time.RFC3339),
		"action":     action,
	}
	if !approve && rejectReason != "" {
		extra["rejectReason"] = rejectReason
	}
	metadata := mergeMetadata(payment.Metadata, extra)

	event := models.PaymentEvent{
		PaymentID:      payment.ID,
		Action:         action,
		ActorID:        &actorID,
		Reason:         rejectReason,
		PreviousStatus: payment.Status,
		NewStatus:      target,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentStatusPending).
			Updates(map[string]interface{}{
				"status":       target,
				"completed_at": completedAt,
				"metadata":     metadata,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStatusConflict
		}

		if err := tx.Model(&models.Registration{}).
			Where("payment_id = ?", payment.ID).
			Update("status", registrationStatus).Error; err != nil {
			return err
		}

		return tx.Create(&event).Error
	})
	if err != nil {
		return err
	}

	s.notify(&payment, event.ID, action, rejectReason)
	return nil
}

// Revert undoes a prior verification, returning the payment to PENDING
// so the registrant can resubmit or be re-reviewed. The prior audit
// entries stay in place; metadata gains previousStatus and the revert
// details additively.
func (s *PaymentService) Revert(paymentID, actorID uuid.UUID, revertReason string) error {
	var payment models.Payment
	if err := s.db.Preload("User").First(&payment, "id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentNotFound
		}
		return err
	}

	previous := payment.Status
	if previous != models.PaymentStatusCompleted && previous != models.PaymentStatusFailed {
		return ErrInvalidTransition
	}

	now := time.Now().UTC()
	extra := map[string]interface{}{
		"previousStatus": previous,
		"revertedBy":     actorID.String(),
		"revertedAt":     now.Format(time.RFC3339),
	}
	if revertReason != "" {
		extra["revertReason"] = revertReason
	}
	metadata := mergeMetadata(payment.Metadata, extra)

	event := models.PaymentEvent{
		PaymentID:      payment.ID,
		Action:         models.PaymentActionReverted,
		ActorID:        &actorID,
		Reason:         revertReason,
		PreviousStatus: previous,
		NewStatus:      models.PaymentStatusPending,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, previous).
			Updates(map[string]interface{}{
				"status":       models.PaymentStatusPending,
				"completed_at": nil,
				"metadata":     metadata,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStatusConflict
		}

		if err := tx.Model(&models.Registration{}).
			Where("payment_id = ?", payment.ID).
			Update("status", models.RegistrationStatusPending).Error; err != nil {
			return err
		}

		return tx.Create(&event).Error
	})
	if err != nil {
		return err
	}

	s.notify(&payment, event.ID, models.PaymentActionReverted, revertReason)
	return nil
}

// CompleteFromGateway applies a PayHere server notify. Gateways retry
// notifies, so seeing the payment already in the target status is not
// an error.
func (s *PaymentService) CompleteFromGateway(orderID string, succeeded bool, gatewayStatus string) error {
	var payment models.Payment
	if err := s.db.Preload("User").First(&payment, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentNotFound
		}
		return err
	}

	if payment.Method != models.PaymentMethodPayHere {
		return ErrNotGatewayPayment
	}

	now := time.Now().UTC()
	target := models.PaymentStatusCompleted
	registrationStatus := models.RegistrationStatusConfirmed
	action := models.PaymentActionGatewayCompleted
	completedAt := &now
	if !succeeded {
		target = models.PaymentStatusFailed
		registrationStatus = models.RegistrationStatusRejected
		action = models.PaymentActionGatewayFailed
		completedAt = nil
	}

	if payment.Status == target {
		return nil
	}
	if payment.Status != models.PaymentStatusPending {
		return ErrInvalidTransition
	}

	metadata := mergeMetadata(payment.Metadata, map[string]interface{}{
		"gatewayStatus":     gatewayStatus,
		"gatewayNotifiedAt": now.Format(time.RFC3339),
	})

	event := models.PaymentEvent{
		PaymentID:      payment.ID,
		Action:         action,
		Reason:         fmt.Sprintf("payhere status_code %s", gatewayStatus),
		PreviousStatus: payment.Status,
		NewStatus:      target,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentStatusPending).
			Updates(map[string]interface{}{
				"status":       target,
				"completed_at": completedAt,
				"metadata":     metadata,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStatusConflict
		}

		if err := tx.Model(&models.Registration{}).
			Where("payment_id = ?", payment.ID).
			Update("status", registrationStatus).Error; err != nil {
			return err
		}

		return tx.Create(&event).Error
	})
	if err != nil {
		return err
	}

	s.notify(&payment, event.ID, action, "")
	return nil
}

// notify POSTs the decision to the registration-email endpoint. The
// transition is already committed; a failed notify is logged and
// recorded on the event, never bubbled up to the admin.
func (s *PaymentService) notify(payment *models.Payment, eventID uuid.UUID, action, reason string) {
	if s.notifyEndpoint == "" {
		return
	}

	body := map[string]interface{}{
		"order_id": payment.OrderID,
		"action":   action,
		"reason":   reason,
	}
	if payment.User != nil {
		body["email"] = payment.User.Email
		body["name"] = payment.User.Name
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		s.recordNotifyError(eventID, err.Error())
		return
	}

	resp, err := s.client.Post(s.notifyEndpoint, "application/json", bytes.NewReader(jsonBody))
	if err != nil {
		s.recordNotifyError(eventID, err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		s.recordNotifyError(eventID, fmt.Sprintf("notify endpoint returned %d", resp.StatusCode))
	}
}

func (s *PaymentService) recordNotifyError(eventID uuid.UUID, message string) {
	log.Printf("payment notification failed: %s", message)
	s.db.Model(&models.PaymentEvent{}).Where("id = ?", eventID).Update("notify_error", message)
}

// mergeMetadata layers new keys over the existing blob without erasing
// what earlier decisions wrote.
func mergeMetadata(existing datatypes.JSON, extra map[string]interface{}) datatypes.JSON {
	meta := map[string]interface{}{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &meta); err != nil {
			meta = map[string]interface{}{"corruptMetadata": string(existing)}
		}
	}
	for k, v := range extra {
		meta[k] = v
	}
	merged, _ := json.Marshal(meta)
	return datatypes.JSON(merged)
}
