package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentActionApproved         = "APPROVED"
	PaymentActionRejected         = "REJECTED"
	PaymentActionReverted         = "REVERTED"
	PaymentActionGatewayCompleted = "GATEWAY_COMPLETED"
	PaymentActionGatewayFailed    = "GATEWAY_FAILED"
)

// PaymentEvent is the append-only audit trail of verification decisions.
// Decision fields are never rewritten once inserted; only NotifyError is
// filled in after the notification attempt.
type PaymentEvent struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key"`
	PaymentID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	Action         string     `gorm:"not null"`
	ActorID        *uuid.UUID `gorm:"type:uuid"`
	Actor          *User      `gorm:"foreignKey:ActorID"`
	Reason         string
	PreviousStatus string `gorm:"not null"`
	NewStatus      string `gorm:"not null"`
	NotifyError    *string
	CreatedAt      time.Time
}

func (event *PaymentEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return
}
