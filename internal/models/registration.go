package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RegistrationStatusPending   = "PENDING"
	RegistrationStatusConfirmed = "CONFIRMED"
	RegistrationStatusRejected  = "REJECTED"
)

const (
	SubmissionStatusDraft     = "DRAFT"
	SubmissionStatusSubmitted = "SUBMITTED"
)

const (
	ParticipantTypeIndividual = "INDIVIDUAL"
	ParticipantTypeTeam       = "TEAM"
)

type Registration struct {
	gorm.Model
	ID uuid.UUID `gorm:"type:uuid;primary_key"`
	// RegistrationNumber is the internal sequential identifier;
	// DisplayCode is the anonymized public one.
	RegistrationNumber string `gorm:"unique;not null"`
	DisplayCode        string `gorm:"unique;not null"`
	Status             string `gorm:"not null;default:'PENDING'"`
	SubmissionStatus   string `gorm:"not null;default:'SUBMITTED'"`
	ParticipantType    string `gorm:"not null"`
	Country            string
	TeamName           string
	CompanyName        string
	Members            datatypes.JSON `gorm:"type:jsonb"`
	UserID             uuid.UUID
	User               User
	CompetitionID      uuid.UUID
	Competition        Competition
	RegistrationTypeID uuid.UUID
	RegistrationType   RegistrationType
	PaymentID          *uuid.UUID `gorm:"type:uuid;index"`
	Payment            *Payment   `gorm:"foreignKey:PaymentID"`
}

func (registration *Registration) BeforeCreate(tx *gorm.DB) (err error) {
	if registration.ID == uuid.Nil {
		registration.ID = uuid.New()
	}
	return
}
