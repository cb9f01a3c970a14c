package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/navindus/compreg/internal/helpers"
	"github.com/navindus/compreg/internal/services"
)

func adminFilter(c *gin.Context) (services.RegistrationFilter, error) {
	page, limit, err := helpers.ParsePagination(c)
	if err != nil {
		return services.RegistrationFilter{}, err
	}

	return services.RegistrationFilter{
		CompetitionID: c.Query("competition_id"),
		Status:        c.Query("status"),
		PaymentStatus: c.Query("payment_status"),
		Search:        c.Query("search"),
		Page:          page,
		Limit:         limit,
	}, nil
}

// ListRegistrations answers the dashboard poll: the registration rows
// plus the counters the status cards show.
func ListRegistrations(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithFailure(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	filter, err := adminFilter(c)
	if err != nil {
		helpers.RespondWithFailure(c, http.StatusBadRequest, err.Error())
		return
	}

	service := services.NewRegistrationService(gormDB)
	registrations, stats, total, err := service.List(filter)
	if err != nil {
		helpers.RespondWithFailure(c, http.StatusInternalServerError, "Error retrieving registrations.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"registrations": registrations,
			"stats":         stats,
			"total":         total,
			"page":          filter.Page,
			"limit":         filter.Limit,
		},
	})
}

type DeleteRegistrationsRequest struct {
	RegistrationIDs []string `json:"registration_ids" binding:"required"`
}

func DeleteRegistrations(c *gin.Context) {
	var req DeleteRegistrationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithFailure(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	ids := make([]uuid.UUID, 0, len(req.RegistrationIDs))
	for _, raw := range req.RegistrationIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			helpers.RespondWithFailure(c, http.StatusBadRequest, fmt.Sprintf("Invalid registration ID %q.", raw))
			return
		}
		ids = append(ids, id)
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithFailure(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	service := services.NewRegistrationService(gormDB)
	deleted, err := service.BulkDelete(ids)
	if err != nil {
		helpers.RespondWithFailure(c, http.StatusInternalServerError, "Failed to delete registrations.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"deleted_count": deleted,
		"message":       fmt.Sprintf("Deleted %d registration(s).", deleted),
	})
}

func ExportRegistrations(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithFailure(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	filter, err := adminFilter(c)
	if err != nil {
		helpers.RespondWithFailure(c, http.StatusBadRequest, err.Error())
		return
	}
	filter.Limit = 0 // exports are never paginated

	registrationService := services.NewRegistrationService(gormDB)
	registrations, _, _, err := registrationService.List(filter)
	if err != nil {
		helpers.RespondWithFailure(c, http.StatusInternalServerError, "Error retrieving registrations.")
		return
	}

	exportService := services.NewExportService()
	filename := fmt.Sprintf("registrations-%s", time.Now().UTC().Format("2006-01-02"))

	switch c.DefaultQuery("format", "csv") {
	case "csv":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))
		c.Header("Content-Type", "text/csv")
		if err := exportService.WriteCSV(c.Writer, registrations); err != nil {
			helpers.RespondWithFailure(c, http.StatusInternalServerError, "Failed to write CSV export.")
		}
	case "xlsx":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", filename))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := exportService.WriteXLSX(c.Writer, registrations); err != nil {
			helpers.RespondWithFailure(c, http.StatusInternalServerError, "Failed to write XLSX export.")
		}
	default:
		helpers.RespondWithFailure(c, http.StatusBadRequest, "Unsupported export format.")
	}
}
