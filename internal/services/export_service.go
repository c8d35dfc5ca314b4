package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sync"
	"time"

	"github.com/jung-kurt/gofpdf/v2"

	"rentledger-backend/internal/archive"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
	"rentledger-backend/internal/timeutil"
)

const displayDate = "02-Jan-2006"

// ExportService renders receipts and collection reports into PDF and CSV
// artifacts and optionally pushes them to the archive bucket. Core PDF fonts
// have no rupee glyph, so amounts print as "Rs.".
type ExportService struct {
	Store    *repositories.Store
	Archiver *archive.Uploader

	nowFn func() time.Time
}

func NewExportService(store *repositories.Store, archiver *archive.Uploader) *ExportService {
	return &ExportService{
		Store:    store,
		Archiver: archiver,
		nowFn:    timeutil.Now,
	}
}

// footerNote is the operator-configured line printed at the bottom of every
// receipt. Missing or unreadable settings fall back to an empty footer.
func (s *ExportService) footerNote(ctx context.Context) string {
	setting, err := s.Store.Settings.Get(ctx, "receipt_footer_note")
	if err != nil {
		return ""
	}
	return setting.SettingValue
}

// RenderReceiptPDF produces the printable A4 receipt. The fee breakdown
// comes from the live payment record; the display fields come from the
// receipt snapshot.
func (s *ExportService) RenderReceiptPDF(ctx context.Context, receipt *models.RentReceipt) ([]byte, error) {
	payment, err := s.Store.RentPayments.GetByID(ctx, receipt.PaymentID)
	if err != nil {
		payment = nil
	}
	footer := s.footerNote(ctx)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Rent Receipt", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, receipt.ReceiptNumber, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", timeutil.ToIST(receipt.GeneratedAt).Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Tenant & Property Box
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Tenant & Property", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Tenant: %s", clip(receipt.TenantName, 35)), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Paid: %s", timeutil.ToIST(receipt.PaidDate).Format(displayDate)), "RB", 1, "L", false, 0, "")
	unitLine := clip(receipt.PropertyName, 35)
	if receipt.UnitLabel != "" {
		unitLine = fmt.Sprintf("%s, Unit %s", clip(receipt.PropertyName, 28), receipt.UnitLabel)
	}
	pdf.CellFormat(95, 7, fmt.Sprintf("Property: %s", unitLine), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Method: %s", receipt.PaymentMethod), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(190, 7, fmt.Sprintf("Address: %s", clip(receipt.PropertyAddress, 80)), "LRB", 1, "L", false, 0, "")
	pdf.CellFormat(190, 7, fmt.Sprintf("Rent Period: %s to %s",
		timeutil.ToIST(receipt.RentPeriod.StartDate).Format(displayDate),
		timeutil.ToIST(receipt.RentPeriod.EndDate).Format(displayDate)), "LRB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Payment Details
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Payment Details", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(130, 7, "Description", "1", 0, "C", true, 0, "")
	pdf.CellFormat(60, 7, "Amount", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	if payment != nil {
		pdf.CellFormat(130, 6, "Base Rent", "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, fmt.Sprintf("Rs. %.2f", payment.Amount), "1", 1, "R", false, 0, "")
		if payment.LateFee > 0 {
			pdf.CellFormat(130, 6, "Late Fee", "1", 0, "L", false, 0, "")
			pdf.CellFormat(60, 6, fmt.Sprintf("Rs. %.2f", payment.LateFee), "1", 1, "R", false, 0, "")
		}
		if payment.Discount > 0 {
			pdf.CellFormat(130, 6, "Discount", "1", 0, "L", false, 0, "")
			pdf.CellFormat(60, 6, fmt.Sprintf("- Rs. %.2f", payment.Discount), "1", 1, "R", false, 0, "")
		}
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(200, 255, 200)
	pdf.CellFormat(130, 9, "Total Collected", "1", 0, "L", true, 0, "")
	pdf.CellFormat(60, 9, fmt.Sprintf("Rs. %.2f", receipt.TotalAmount), "1", 1, "R", true, 0, "")

	if payment != nil && payment.TransactionID != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(190, 6, fmt.Sprintf("Transaction Ref: %s", payment.TransactionID), "", 1, "L", false, 0, "")
	}

	if footer != "" {
		pdf.Ln(8)
		pdf.SetFont("Arial", "I", 9)
		pdf.CellFormat(190, 6, clip(footer, 110), "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderReportPDF produces the landscape collection-report document with the
// summary scalars and all three breakdown tables.
func (s *ExportService) RenderReportPDF(report *models.RentCollectionReport) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(277, 12, "Rent Collection Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(277, 8, fmt.Sprintf("Period: %s to %s",
		timeutil.ToIST(report.Period.StartDate).Format(displayDate),
		timeutil.ToIST(report.Period.EndDate).Format(displayDate)), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(277, 6, fmt.Sprintf("Generated: %s", timeutil.ToIST(report.GeneratedAt).Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Summary Box
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(277, 8, "Summary", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(55, 8, fmt.Sprintf("Expected: Rs. %.2f", report.TotalExpectedRent), "1", 0, "C", false, 0, "")
	pdf.CellFormat(55, 8, fmt.Sprintf("Collected: Rs. %.2f", report.TotalCollectedRent), "1", 0, "C", false, 0, "")
	pdf.CellFormat(55, 8, fmt.Sprintf("Outstanding: Rs. %.2f", report.TotalOutstandingRent), "1", 0, "C", false, 0, "")
	pdf.CellFormat(56, 8, fmt.Sprintf("Collection Rate: %.2f%%", report.CollectionRate), "1", 0, "C", false, 0, "")
	pdf.CellFormat(56, 8, fmt.Sprintf("Payments: %d", report.TotalPayments), "1", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Property Breakdown
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(277, 8, "Property Breakdown", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(12, 7, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(60, 7, "Property", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Unit", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Type", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Expected", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Collected", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Outstanding", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Rate %", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Count", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for i, pc := range report.PropertyBreakdown {
		if i%2 == 0 {
			pdf.SetFillColor(255, 255, 255)
		} else {
			pdf.SetFillColor(245, 245, 245)
		}
		pdf.CellFormat(12, 6, fmt.Sprintf("%d", i+1), "1", 0, "C", true, 0, "")
		pdf.CellFormat(60, 6, clip(pc.PropertyID, 28), "1", 0, "L", true, 0, "")
		pdf.CellFormat(30, 6, clip(pc.UnitID, 13), "1", 0, "C", true, 0, "")
		pdf.CellFormat(25, 6, string(pc.PropertyType), "1", 0, "C", true, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("Rs. %.2f", pc.ExpectedRent), "1", 0, "R", true, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("Rs. %.2f", pc.CollectedRent), "1", 0, "R", true, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("Rs. %.2f", pc.OutstandingRent), "1", 0, "R", true, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.2f", pc.CollectionRate), "1", 0, "R", true, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", pc.PaymentCount), "1", 1, "C", true, 0, "")
	}
	pdf.Ln(5)

	// Tenant Breakdown
	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(277, 8, "Tenant Breakdown", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(12, 7, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(85, 7, "Tenant", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Expected", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Collected", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Outstanding", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Days Late", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Payments", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for i, tc := range report.TenantBreakdown {
		if i%2 == 0 {
			pdf.SetFillColor(255, 255, 255)
		} else {
			pdf.SetFillColor(245, 245, 245)
		}
		name := tc.TenantName
		if name == "" {
			name = tc.TenantID
		}
		pdf.CellFormat(12, 6, fmt.Sprintf("%d", i+1), "1", 0, "C", true, 0, "")
		pdf.CellFormat(85, 6, clip(name, 40), "1", 0, "L", true, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("Rs. %.2f", tc.ExpectedRent), "1", 0, "R", true, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("Rs. %.2f", tc.CollectedRent), "1", 0, "R", true, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("Rs. %.2f", tc.OutstandingRent), "1", 0, "R", true, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", tc.DaysPastDue), "1", 0, "C", true, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", len(tc.Payments)), "1", 1, "C", true, 0, "")
	}
	pdf.Ln(5)

	// Method Breakdown
	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(277, 8, "Payment Methods (paid only)", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(80, 7, "Method", "1", 0, "C", true, 0, "")
	pdf.CellFormat(50, 7, "Count", "1", 0, "C", true, 0, "")
	pdf.CellFormat(80, 7, "Total", "1", 0, "C", true, 0, "")
	pdf.CellFormat(67, 7, "Share %", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, mc := range report.PaymentMethodBreakdown {
		pdf.CellFormat(80, 6, string(mc.Method), "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, fmt.Sprintf("%d", mc.Count), "1", 0, "C", false, 0, "")
		pdf.CellFormat(80, 6, fmt.Sprintf("Rs. %.2f", mc.TotalAmount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(67, 6, fmt.Sprintf("%.2f", mc.Percentage), "1", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReportCSV flattens a collection report into one CSV document with a
// section per breakdown.
func (s *ExportService) ReportCSV(report *models.RentCollectionReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{"Rent Collection Report", string(report.ReportType)})
	w.Write([]string{"Period", report.Period.StartDate.Format(timeutil.DateLayout), report.Period.EndDate.Format(timeutil.DateLayout)})
	w.Write([]string{"Generated", timeutil.ToIST(report.GeneratedAt).Format(timeutil.DateTimeLayout)})
	w.Write([]string{""})
	w.Write([]string{"Total Expected", fmt.Sprintf("%.2f", report.TotalExpectedRent)})
	w.Write([]string{"Total Collected", fmt.Sprintf("%.2f", report.TotalCollectedRent)})
	w.Write([]string{"Total Outstanding", fmt.Sprintf("%.2f", report.TotalOutstandingRent)})
	w.Write([]string{"Collection Rate", fmt.Sprintf("%.2f", report.CollectionRate)})
	w.Write([]string{"Total Payments", fmt.Sprintf("%d", report.TotalPayments)})
	w.Write([]string{""})

	w.Write([]string{"Property Breakdown"})
	w.Write([]string{"#", "Property", "Unit", "Type", "Expected", "Collected", "Outstanding", "Rate", "Payments"})
	for i, pc := range report.PropertyBreakdown {
		w.Write([]string{
			fmt.Sprintf("%d", i+1),
			pc.PropertyID,
			pc.UnitID,
			string(pc.PropertyType),
			fmt.Sprintf("%.2f", pc.ExpectedRent),
			fmt.Sprintf("%.2f", pc.CollectedRent),
			fmt.Sprintf("%.2f", pc.OutstandingRent),
			fmt.Sprintf("%.2f", pc.CollectionRate),
			fmt.Sprintf("%d", pc.PaymentCount),
		})
	}
	w.Write([]string{""})

	w.Write([]string{"Tenant Breakdown"})
	w.Write([]string{"#", "Tenant ID", "Tenant", "Expected", "Collected", "Outstanding", "Days Past Due", "Payments"})
	for i, tc := range report.TenantBreakdown {
		w.Write([]string{
			fmt.Sprintf("%d", i+1),
			tc.TenantID,
			tc.TenantName,
			fmt.Sprintf("%.2f", tc.ExpectedRent),
			fmt.Sprintf("%.2f", tc.CollectedRent),
			fmt.Sprintf("%.2f", tc.OutstandingRent),
			fmt.Sprintf("%d", tc.DaysPastDue),
			fmt.Sprintf("%d", len(tc.Payments)),
		})
	}
	w.Write([]string{""})

	w.Write([]string{"Payment Methods"})
	w.Write([]string{"Method", "Count", "Total", "Percentage"})
	for _, mc := range report.PaymentMethodBreakdown {
		w.Write([]string{
			string(mc.Method),
			fmt.Sprintf("%d", mc.Count),
			fmt.Sprintf("%.2f", mc.TotalAmount),
			fmt.Sprintf("%.2f", mc.Percentage),
		})
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BulkReceiptPDFs renders every receipt whose paid date falls inside the
// window, in parallel. Returns filename -> document; receipts that fail to
// render are skipped.
func (s *ExportService) BulkReceiptPDFs(ctx context.Context, start, end time.Time) (map[string][]byte, error) {
	receipts, err := s.Store.RentReceipts.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	windowStart := timeutil.StartOfDay(start)
	windowEnd := timeutil.EndOfDay(end)
	var selected []*models.RentReceipt
	for _, r := range receipts {
		paid := timeutil.ToIST(r.PaidDate)
		if paid.Before(windowStart) || paid.After(windowEnd) {
			continue
		}
		selected = append(selected, r)
	}

	type pdfResult struct {
		name string
		data []byte
		err  error
	}

	jobs := make(chan *models.RentReceipt, len(selected))
	results := make(chan pdfResult, len(selected))

	var wg sync.WaitGroup
	numWorkers := 5
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range jobs {
				data, err := s.RenderReceiptPDF(ctx, r)
				results <- pdfResult{
					name: fmt.Sprintf("receipt_%s.pdf", r.ReceiptNumber),
					data: data,
					err:  err,
				}
			}
		}()
	}

	for _, r := range selected {
		jobs <- r
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	pdfs := make(map[string][]byte)
	for r := range results {
		if r.err == nil && r.data != nil {
			pdfs[r.name] = r.data
		}
	}
	return pdfs, nil
}

// ZipArchive bundles rendered documents into a single zip payload.
func (s *ExportService) ZipArchive(files map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for name, data := range files {
		fw, err := zw.Create(name)
		if err != nil {
			continue
		}
		fw.Write(data)
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ArchiveReportArtifacts renders the report both ways and uploads the pair
// to the archive bucket. A nil archiver makes this a no-op.
func (s *ExportService) ArchiveReportArtifacts(ctx context.Context, report *models.RentCollectionReport) error {
	if s.Archiver == nil {
		return nil
	}

	prefix := fmt.Sprintf("reports/%s", timeutil.ToIST(report.GeneratedAt).Format("2006/01"))

	pdfData, err := s.RenderReportPDF(report)
	if err != nil {
		return err
	}
	if err := s.Archiver.Upload(ctx, fmt.Sprintf("%s/report_%s.pdf", prefix, report.ID), pdfData, "application/pdf"); err != nil {
		return err
	}

	csvData, err := s.ReportCSV(report)
	if err != nil {
		return err
	}
	return s.Archiver.Upload(ctx, fmt.Sprintf("%s/report_%s.csv", prefix, report.ID), csvData, "text/csv")
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
