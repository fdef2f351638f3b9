package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"borsibaar-cloud/internal/observability/metrics"
	stationapp "borsibaar-cloud/internal/stations/application"
)

const (
	formatXLSX = "xlsx"
	formatPDF  = "pdf"
)

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, organizationID int64, format string) {
	if format != formatXLSX && format != formatPDF {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	list, err := h.service.ListStations(r.Context(), organizationID)
	if err != nil {
		metrics.IncExport(format, metrics.ResultError)
		h.respondError(w, err)
		return
	}

	var (
		payload     []byte
		contentType string
	)
	switch format {
	case formatXLSX:
		payload, err = BuildStationsXLSX(organizationID, list)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case formatPDF:
		payload, err = BuildStationsPDF(organizationID, list)
		contentType = "application/pdf"
	}
	if err != nil {
		metrics.IncExport(format, metrics.ResultError)
		h.logger.Printf("station export %s: %v", format, err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	metrics.IncExport(format, metrics.ResultSuccess)

	filename := fmt.Sprintf("bar-stations-%d.%s", organizationID, format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
	h.logAudit(r, "station.export", 0, map[string]any{"format": format, "count": len(list)})
}

// BuildStationsXLSX renders the organization's station roster as a workbook.
func BuildStationsXLSX(organizationID int64, list []stationapp.StationResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "stations"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Organization")
	_ = f.SetCellValue(sheet, "B1", organizationID)
	headers := []string{"ID", "Name", "Description", "Active", "Assigned users", "Updated"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 3)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, header)
	}
	for i, station := range list {
		row := i + 4
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), station.ID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), station.Name)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), describe(station))
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), station.Active)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), userNames(station))
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), formatTime(station.UpdatedAt))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildStationsPDF renders a minimal roster PDF.
func BuildStationsPDF(organizationID int64, list []stationapp.StationResponse) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Bar Stations")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Organization: %d", organizationID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(20, 6, "ID", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Name", "1", 0, "C", false, 0, "")
	pdf.CellFormat(80, 6, "Description", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Active", "1", 0, "C", false, 0, "")
	pdf.CellFormat(90, 6, "Assigned users", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, station := range list {
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", station.ID), "1", 0, "R", false, 0, "")
		pdf.CellFormat(60, 6, station.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(80, 6, describe(station), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, yesNo(station.Active), "1", 0, "C", false, 0, "")
		pdf.CellFormat(90, 6, userNames(station), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func describe(station stationapp.StationResponse) string {
	if station.Description == nil {
		return ""
	}
	return *station.Description
}

func userNames(station stationapp.StationResponse) string {
	names := make([]string, 0, len(station.AssignedUsers))
	for _, user := range station.AssignedUsers {
		name := user.Name
		if name == "" {
			name = user.ID
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
