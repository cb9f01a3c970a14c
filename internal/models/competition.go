package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Competition struct {
	gorm.Model
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	Title       string    `gorm:"not null"`
	Slug        string    `gorm:"unique;not null"`
	Description string
	StartDate   time.Time
	EndDate     time.Time
	// No default tag here: gorm drops zero-valued fields that carry one,
	// which would turn a competition created closed into an open one.
	RegistrationOpen  bool `gorm:"not null"`
	User              User
	UserID            uuid.UUID
	RegistrationTypes []RegistrationType
}

func (competition *Competition) BeforeCreate(tx *gorm.DB) (err error) {
	if competition.ID == uuid.Nil {
		competition.ID = uuid.New()
	}
	return
}
