package services

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/navindus/compreg/internal/models"
)

func exportFixtures() []models.Registration {
	completedAt := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	payment := &models.Payment{
		OrderID:     "ORD-1717236000-00AB",
		Amount:      5000,
		Currency:    "LKR",
		Method:      models.PaymentMethodBankTransfer,
		Status:      models.PaymentStatusCompleted,
		CompletedAt: &completedAt,
	}

	return []models.Registration{
		{
			RegistrationNumber: "REG-2024-001",
			DisplayCode:        "PUB-ABC234",
			Status:             models.RegistrationStatusConfirmed,
			SubmissionStatus:   models.SubmissionStatusSubmitted,
			ParticipantType:    models.ParticipantTypeTeam,
			Country:            "Sri Lanka",
			TeamName:           "Alpha, Beta & Co", // embedded comma must round-trip
			CompanyName:        "Widgets, Ltd.",
			Competition:        models.Competition{Title: "Robotics Challenge 2024"},
			RegistrationType:   models.RegistrationType{Name: "School Team"},
			Payment:            payment,
		},
		{
			RegistrationNumber: "REG-2024-002",
			DisplayCode:        "PUB-XYZ789",
			Status:             models.RegistrationStatusPending,
			SubmissionStatus:   models.SubmissionStatusSubmitted,
			ParticipantType:    models.ParticipantTypeIndividual,
			Country:            "Sri Lanka",
			Competition:        models.Competition{Title: "Robotics Challenge 2024"},
			RegistrationType:   models.RegistrationType{Name: "Open Individual"},
		},
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	registrations := exportFixtures()
	svc := NewExportService()

	var buf bytes.Buffer
	require.NoError(t, svc.WriteCSV(&buf, registrations))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus one row per registration")
	require.Equal(t, exportHeader, records[0])

	first := records[1]
	require.Equal(t, "REG-2024-001", first[0])
	require.Equal(t, "PUB-ABC234", first[1])
	require.Equal(t, "Alpha, Beta & Co", first[6], "embedded commas survive the round trip")
	require.Equal(t, "Widgets, Ltd.", first[7])
	require.Equal(t, "5000", first[10])
	require.Equal(t, models.PaymentStatusCompleted, first[13])

	second := records[2]
	require.Equal(t, "REG-2024-002", second[0])
	require.Equal(t, "", second[14], "no payment means empty order id")
}

func TestWriteXLSX(t *testing.T) {
	registrations := exportFixtures()
	svc := NewExportService()

	var buf bytes.Buffer
	require.NoError(t, svc.WriteXLSX(&buf, registrations))

	file, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer file.Close()

	rows, err := file.GetRows(file.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, exportHeader, rows[0])
	require.Equal(t, "REG-2024-001", rows[1][0])
	require.Equal(t, "Alpha, Beta & Co", rows[1][6])
}
