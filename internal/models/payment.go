package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PaymentMethodPayHere      = "PAYHERE"
	PaymentMethodBankTransfer = "BANK_TRANSFER"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

// Payment covers one order; multiple registrations submitted together
// share a single payment row.
type Payment struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID     string    `gorm:"unique;not null"`
	Amount      int       `gorm:"not null"`
	Currency    string    `gorm:"not null;default:'LKR'"`
	Method      string    `gorm:"not null"`
	Status      string    `gorm:"not null;default:'PENDING'"`
	CompletedAt *time.Time
	SlipPath    *string
	// Metadata keeps the legacy free-form audit blob consumed by the
	// dashboard. The authoritative trail is the payment_events table.
	Metadata      datatypes.JSON `gorm:"type:jsonb"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index"`
	User          *User          `gorm:"foreignKey:UserID"`
	Registrations []Registration `gorm:"foreignKey:PaymentID"`
	Events        []PaymentEvent `gorm:"foreignKey:PaymentID"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (payment *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return
}
