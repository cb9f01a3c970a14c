package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegistrationType is one category of entry within a competition,
// e.g. "School Team" or "Open Individual", with its own fee.
type RegistrationType struct {
	gorm.Model
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	Name          string    `gorm:"not null"`
	Fee           int       `gorm:"not null"`
	Currency      string    `gorm:"not null;default:'LKR'"`
	Limit         *int
	IsTeam        bool `gorm:"not null;default:false"`
	CompetitionID uuid.UUID
	Competition   Competition
}

func (registrationType *RegistrationType) BeforeCreate(tx *gorm.DB) (err error) {
	if registrationType.ID == uuid.Nil {
		registrationType.ID = uuid.New()
	}
	return
}
