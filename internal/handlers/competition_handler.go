package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/navindus/compreg/internal/helpers"
	"github.com/navindus/compreg/internal/models"
)

type CompetitionRequest struct {
	Title            string    `json:"title" binding:"required"`
	Slug             string    `json:"slug" binding:"required"`
	Description      string    `json:"description"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	RegistrationOpen *bool     `json:"registration_open"`
}

type RegistrationTypeRequest struct {
	Name     string `json:"name" binding:"required"`
	Fee      int    `json:"fee" binding:"min=0"`
	Currency string `json:"currency"`
	Limit    *int   `json:"limit"`
	IsTeam   bool   `json:"is_team"`
}

func CreateCompetition(c *gin.Context) {
	var req CompetitionRequest
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

	registrationOpen := true
	if req.RegistrationOpen != nil {
		registrationOpen = *req.RegistrationOpen
	}

	competition := models.Competition{
		ID:               uuid.New(),
		Title:            req.Title,
		Slug:             req.Slug,
		Description:      req.Description,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		RegistrationOpen: registrationOpen,
		UserID:           userID.(uuid.UUID),
	}

	if err := gormDB.Create(&competition).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create competition.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":        "Competition created successfully.",
		"competition_id": competition.ID,
	})
}

func ListCompetitions(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	page, limit, err := helpers.ParsePagination(c)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	query := gormDB.Model(&models.Competition{})
	if c.Query("open") == "true" {
		query = query.Where("registration_open = ?", true)
	}

	var totalCount int64
	query.Count(&totalCount)

	var competitions []models.Competition
	offset := (page - 1) * limit
	err = query.Preload("RegistrationTypes").Offset(offset).Limit(limit).Order("created_at DESC").Find(&competitions).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving competitions.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"competitions": competitions,
		"total":        totalCount,
		"page":         page,
		"limit":        limit,
		"total_pages":  (totalCount + int64(limit) - 1) / int64(limit),
	})
}

func GetCompetition(c *gin.Context) {
	competitionID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	// Postgres rejects a non-UUID value compared against the uuid id
	// column, so slugs never go near it.
	query := gormDB.Preload("RegistrationTypes")
	if id, err := uuid.Parse(competitionID); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("slug = ?", competitionID)
	}

	var competition models.Competition
	if err := query.First(&competition).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Competition not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving competition.")
		return
	}

	c.JSON(http.StatusOK, competition)
}

func UpdateCompetition(c *gin.Context) {
	competitionID := c.Param("id")

	var req CompetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var competition models.Competition
	if err := gormDB.Where("id = ?", competitionID).First(&competition).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Competition not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error finding competition.")
		return
	}

	competition.Title = req.Title
	competition.Slug = req.Slug
	competition.Description = req.Description
	competition.StartDate = req.StartDate
	competition.EndDate = req.EndDate
	if req.RegistrationOpen != nil {
		competition.RegistrationOpen = *req.RegistrationOpen
	}

	if err := gormDB.Save(&competition).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update competition.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Competition updated successfully.",
		"competition": competition,
	})
}

func DeleteCompetition(c *gin.Context) {
	competitionID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	result := gormDB.Where("id = ?", competitionID).Delete(&models.Competition{})
	if result.Error != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete competition.")
		return
	}

	if result.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusNotFound, "Competition not found.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Competition deleted successfully.",
	})
}

func CreateRegistrationType(c *gin.Context) {
	competitionID := c.Param("id")

	var req RegistrationTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var competition models.Competition
	if err := gormDB.Where("id = ?", competitionID).First(&competition).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Competition not found.")
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "LKR"
	}

	registrationType := models.RegistrationType{
		ID:            uuid.New(),
		Name:          req.Name,
		Fee:           req.Fee,
		Currency:      currency,
		Limit:         req.Limit,
		IsTeam:        req.IsTeam,
		CompetitionID: competition.ID,
	}

	if err := gormDB.Create(&registrationType).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create registration type.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":              "Registration type created successfully.",
		"registration_type_id": registrationType.ID,
	})
}

func UpdateRegistrationType(c *gin.Context) {
	typeID := c.Param("typeId")

	var req RegistrationTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var registrationType models.RegistrationType
	if err := gormDB.Where("id = ? AND competition_id = ?", typeID, c.Param("id")).First(&registrationType).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Registration type not found.")
		return
	}

	registrationType.Name = req.Name
	registrationType.Fee = req.Fee
	if req.Currency != "" {
		registrationType.Currency = req.Currency
	}
	registrationType.Limit = req.Limit
	registrationType.IsTeam = req.IsTeam

	if err := gormDB.Save(&registrationType).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update registration type.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":           "Registration type updated successfully.",
		"registration_type": registrationType,
	})
}

func DeleteRegistrationType(c *gin.Context) {
	typeID := c.Param("typeId")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	result := gormDB.Where("id = ? AND competition_id = ?", typeID, c.Param("id")).Delete(&models.RegistrationType{})
	if result.Error != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete registration type.")
		return
	}

	if result.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusNotFound, "Registration type not found.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Registration type deleted successfully.",
	})
}
