package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/navindus/compreg/internal/models"
)

// ExportService renders registration lists for download. CSV goes
// through encoding/csv so fields with embedded commas are quoted and
// survive a round trip.
type ExportService struct{}

func NewExportService() *ExportService {
	return &ExportService{}
}

var exportHeader = []string{
	"Registration Number",
	"Display Code",
	"Status",
	"Submission",
	"Participant Type",
	"Country",
	"Team",
	"Company",
	"Competition",
	"Registration Type",
	"Amount",
	"Currency",
	"Payment Method",
	"Payment Status",
	"Order ID",
	"Registered At",
}

func exportRow(registration models.Registration) []string {
	amount := ""
	currency := ""
	paymentMethod := ""
	paymentStatus := ""
	orderID := ""
	if registration.Payment != nil {
		amount = fmt.Sprintf("%d", registration.Payment.Amount)
		currency = registration.Payment.Currency
		paymentMethod = registration.Payment.Method
		paymentStatus = registration.Payment.Status
		orderID = registration.Payment.OrderID
	}

	return []string{
		registration.RegistrationNumber,
		registration.DisplayCode,
		registration.Status,
		registration.SubmissionStatus,
		registration.ParticipantType,
		registration.Country,
		registration.TeamName,
		registration.CompanyName,
		registration.Competition.Title,
		registration.RegistrationType.Name,
		amount,
		currency,
		paymentMethod,
		paymentStatus,
		orderID,
		registration.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *ExportService) WriteCSV(w io.Writer, registrations []models.Registration) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(exportHeader); err != nil {
		return err
	}
	for _, registration := range registrations {
		if err := writer.Write(exportRow(registration)); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func (s *ExportService) WriteXLSX(w io.Writer, registrations []models.Registration) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := file.GetSheetName(0)

	if err := setRow(file, sheet, 1, exportHeader); err != nil {
		return err
	}
	for i, registration := range registrations {
		if err := setRow(file, sheet, i+2, exportRow(registration)); err != nil {
			return err
		}
	}

	_, err := file.WriteTo(w)
	return err
}

func setRow(file *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}

	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return file.SetSheetRow(sheet, cell, &cells)
}
