// Package render produces the printable valuation report.
package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"
	"time"

	"rics-valuation/internal/application/valuation"
	"rics-valuation/internal/domain"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog/log"
)

const (
	pageW   = 210.0
	margin  = 20.0
	bodyW   = pageW - 2*margin
	lineH   = 6.0
	bandH   = 40.0
	bottomM = 20.0

	reportTitle = "RICS Red Book Valuation Report"
	photoName   = "property-photo"

	complianceText = "This valuation has been prepared in accordance with the RICS Valuation - Global Standards (Red Book), " +
		"which incorporate the International Valuation Standards (IVS), and the UK national supplement. " +
		"The valuer confirms compliance with all mandatory requirements of the Red Book."
	declarationText = "I confirm that I have the necessary competence, independence, and objectivity to undertake this valuation. " +
		"I have no material interest in the subject property and this valuation has been prepared objectively and impartially."
	manualText = "This valuation reflects the valuer's professional judgement and has not been derived automatically " +
		"from the comparable evidence."
)

type rgb struct{ r, g, b int }

var (
	navy  = rgb{0, 61, 130}
	black = rgb{0, 0, 0}
	white = rgb{255, 255, 255}
	grey  = rgb{100, 100, 100}
)

// PDF writes rec as an A4 report. now dates the declaration.
func PDF(w io.Writer, rec *domain.ValuationRecord, now time.Time) error {
	doc := build(rec, now)
	if err := doc.Output(w); err != nil {
		return fmt.Errorf("render report %s: %w", rec.ID, err)
	}
	return nil
}

type report struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	rec *domain.ValuationRecord
	val domain.ValuationResult
	now time.Time
}

func build(rec *domain.ValuationRecord, now time.Time) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, bandH+10, margin)
	pdf.SetAutoPageBreak(true, bottomM)
	pdf.SetTitle(reportTitle, true)
	pdf.SetAuthor(rec.Valuer.Name, true)
	pdf.SetCreationDate(now)
	pdf.AliasNbPages("")

	r := &report{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
		rec: rec,
		now: now,
	}
	if rec.Valuation != nil {
		r.val = *rec.Valuation
	}

	pdf.SetHeaderFunc(r.header)
	pdf.SetFooterFunc(r.footer)

	r.cover()
	pdf.AddPage()
	r.propertySection()
	r.inspectionSection()
	r.marketSection()
	r.comparablesSection()
	r.summarySection()
	r.opinionBox()
	r.textSection("VALUATION NOTES & JUSTIFICATION", r.val.Notes)
	r.textSection("ASSUMPTIONS", rec.Inspection.Assumptions)
	pdf.AddPage()
	r.declaration()
	return pdf
}

func (r *report) color(c rgb) { r.pdf.SetTextColor(c.r, c.g, c.b) }
func (r *report) fill(c rgb) { r.pdf.SetFillColor(c.r, c.g, c.b) }
func (r *report) font(style string, size float64) {
	r.pdf.SetFont("Helvetica", style, size)
}

func (r *report) centered(y, h float64, text string) {
	r.pdf.SetXY(0, y)
	r.pdf.CellFormat(pageW, h, r.tr(text), "", 0, "C", false, 0, "")
}

func (r *report) line(text string) {
	r.pdf.MultiCell(bodyW, lineH, r.tr(text), "", "L", false)
}

func (r *report) indented(text string) {
	r.pdf.SetX(margin + 5)
	r.pdf.MultiCell(bodyW-5, lineH, r.tr(text), "", "L", false)
}

func (r *report) heading(text string, size float64) {
	r.pdf.Ln(4)
	r.font("B", size)
	r.color(navy)
	r.pdf.CellFormat(bodyW, size*0.6, r.tr(text), "", 1, "L", false, 0, "")
	r.pdf.Ln(2)
	r.font("", 10)
	r.color(black)
}

// needs starts a new page when fewer than h millimetres remain.
func (r *report) needs(h float64) {
	_, pageH := r.pdf.GetPageSize()
	if r.pdf.GetY()+h > pageH-bottomM {
		r.pdf.AddPage()
	}
}

func (r *report) header() {
	if r.pdf.PageNo() == 1 {
		return
	}
	r.fill(navy)
	r.pdf.Rect(0, 0, pageW, bandH, "F")
	r.color(white)
	r.font("B", 20)
	r.pdf.SetXY(margin, 14)
	r.pdf.CellFormat(bodyW, 10, r.tr(strings.ToUpper(reportTitle)), "", 1, "L", false, 0, "")
	r.font("", 11)
	r.pdf.SetX(margin)
	r.pdf.CellFormat(bodyW, 8, r.tr("Professional Property Valuation - London, UK"), "", 1, "L", false, 0, "")
	r.pdf.SetY(bandH + 10)
	r.color(black)
}

func (r *report) footer() {
	page := r.pdf.PageNo()
	r.pdf.SetY(-12)
	r.font("", 8)
	r.pdf.SetTextColor(128, 128, 128)
	if page > 1 {
		r.pdf.SetX(margin)
		r.pdf.CellFormat(bodyW/3, 5, reportTitle, "", 0, "L", false, 0, "")
	} else {
		r.pdf.SetX(margin + bodyW/3)
	}
	r.pdf.CellFormat(bodyW/3, 5, fmt.Sprintf("Page %d of {nb}", page), "", 0, "C", false, 0, "")
	if page > 1 {
		r.pdf.CellFormat(bodyW/3, 5, r.tr(Date(r.rec.Inspection.ValuationDate)), "", 0, "R", false, 0, "")
	}
}

func (r *report) cover() {
	pdf := r.pdf
	pdf.SetAutoPageBreak(false, 0)
	defer pdf.SetAutoPageBreak(true, bottomM)
	pdf.AddPage()

	r.fill(navy)
	pdf.Rect(0, 0, pageW, 120, "F")
	r.color(white)
	r.font("B", 32)
	r.centered(62, 12, "RICS RED BOOK")
	r.centered(77, 12, "VALUATION REPORT")
	r.font("", 14)
	r.centered(95, 8, "Professional Property Valuation")
	r.centered(105, 8, "London, United Kingdom")

	addrY := 145.0
	if r.photo(30, 135, 150, 100) {
		addrY = 245
	}

	p := r.rec.Property
	r.color(black)
	r.font("B", 18)
	r.centered(addrY-6, 8, orNotSpecified(p.Address))
	r.font("", 14)
	sub := orNotSpecified(p.Postcode)
	if p.Borough != "" {
		sub += " | " + p.Borough
	}
	r.centered(addrY+3, 7, sub)

	r.color(navy)
	r.font("B", 16)
	r.centered(addrY+19, 8, "ESTIMATED MARKET VALUE")
	r.font("B", 24)
	r.centered(addrY+28, 10, Currency(r.val.EstimatedValue))

	v := r.rec.Valuer
	r.color(grey)
	r.font("", 10)
	r.centered(266, 5, "Valuation Date: "+Date(r.rec.Inspection.ValuationDate))
	r.centered(272, 5, "Prepared by: "+strings.Trim(v.Name+", "+v.Qualification, ", "))
	r.font("I", 8)
	r.centered(278, 5, "Prepared in accordance with the RICS Valuation - Global Standards")
}

// photo places the embedded photo. A photo that does not decode is left out
// rather than failing the whole report.
func (r *report) photo(x, y, w, h float64) bool {
	data, kind, ok := decodePhoto(r.rec.Photo)
	if !ok {
		return false
	}
	opts := fpdf.ImageOptions{ImageType: kind}
	r.pdf.RegisterImageOptionsReader(photoName, opts, bytes.NewReader(data))
	r.pdf.ImageOptions(photoName, x, y, w, h, false, opts, 0, "")
	return true
}

func decodePhoto(uri string) ([]byte, string, bool) {
	if uri == "" {
		return nil, "", false
	}
	_, payload, found := strings.Cut(uri, "base64,")
	if !found {
		return nil, "", false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		log.Warn().Err(err).Msg("report photo is not valid base64, skipping")
		return nil, "", false
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		log.Warn().Err(err).Msg("report photo does not decode, skipping")
		return nil, "", false
	}
	switch format {
	case "jpeg":
		return data, "JPG", true
	case "png":
		return data, "PNG", true
	}
	return nil, "", false
}

func (r *report) propertySection() {
	p := r.rec.Property
	r.heading("PROPERTY DETAILS", 16)
	r.line("Address: " + orNotSpecified(p.Address))
	r.line(fmt.Sprintf("Postcode: %s | Borough: %s", orNotSpecified(p.Postcode), orNotSpecified(p.Borough)))
	r.line(fmt.Sprintf("Property Type: %s | Tenure: %s", orNotSpecified(p.Type), orNotSpecified(p.Tenure)))
	r.line(fmt.Sprintf("Bedrooms: %d | Bathrooms: %d | Reception Rooms: %d", p.Bedrooms, p.Bathrooms, p.ReceptionRooms))
	r.line(fmt.Sprintf("Internal Floor Area: %d %s", p.FloorArea, areaUnit(p.FloorAreaUnit)))
	r.line("Condition: " + orNotSpecified(p.Condition))
}

func (r *report) inspectionSection() {
	i := r.rec.Inspection
	r.heading("INSPECTION & VALUATION BASIS", 16)
	r.line("Inspection Date: " + Date(i.InspectionDate))
	r.line("Valuation Date: " + Date(i.ValuationDate))
	r.line("Extent of Inspection: " + orNotSpecified(i.InspectionType))
	r.line("Purpose of Valuation: " + orNotSpecified(i.Purpose))
	r.line("Basis of Valuation: " + orNotSpecified(i.Basis))
	if strings.TrimSpace(i.Limitations) != "" {
		r.pdf.Ln(3)
		r.font("B", 10)
		r.line("Inspection Limitations:")
		r.font("", 10)
		r.line(i.Limitations)
	}
}

func (r *report) marketSection() {
	m := r.rec.Market
	r.needs(40)
	r.heading("MARKET ANALYSIS", 16)
	r.line("Market Conditions: " + orNotSpecified(m.Conditions))
	r.line("Market Trend: " + orNotSpecified(m.Trend))
	r.line("Location Quality: " + orNotSpecified(m.LocationQuality))
	r.line("Transport Links: " + orNotSpecified(m.TransportLinks))
	if strings.TrimSpace(m.Commentary) != "" {
		r.line(m.Commentary)
	}
}

func (r *report) comparablesSection() {
	r.heading("COMPARABLE EVIDENCE", 16)
	if len(r.rec.Comparables) == 0 {
		r.line("No comparable evidence recorded.")
		return
	}
	for n, c := range r.rec.Comparables {
		r.needs(5 * lineH)
		r.font("B", 10)
		r.line(fmt.Sprintf("Comparable %d:", n+1))
		r.font("", 10)
		r.indented("Address: " + orNotSpecified(c.Address))
		r.indented(fmt.Sprintf("Sale Price: %s | Sale Date: %s", Currency(c.SalePrice), Date(c.SaleDate)))
		r.indented(fmt.Sprintf("Floor Area: %d %s | Bedrooms: %d | Condition: %s",
			c.Area(), areaUnit(c.AreaUnit), c.Bedrooms, orNotSpecified(c.Condition)))
		r.indented(fmt.Sprintf("Total Adjustments: %.1f%%", c.Adjustments.Total()))
		r.pdf.Ln(3)
	}
}

func (r *report) pricePerArea() string {
	label := "Price per " + areaUnit(r.rec.Property.FloorAreaUnit) + ": "
	ppa, ok := valuation.PricePerArea(r.val.EstimatedValue, r.rec.Property.FloorArea)
	if !ok {
		return label + "Not computable"
	}
	return label + Currency(ppa)
}

func (r *report) summarySection() {
	r.needs(50)
	r.heading("VALUATION SUMMARY", 16)
	mode := r.val.EffectiveMode()
	r.font("B", 10)
	r.line("METHOD: " + strings.ToUpper(string(mode)))
	r.font("", 10)
	if mode == domain.ModeManual {
		r.line(manualText)
		r.line(r.pricePerArea())
		return
	}
	adj := 0.0
	if r.val.MarketAdjustment != 0 {
		adj = (r.val.MarketAdjustment - 1) * 100
	}
	r.line(fmt.Sprintf("Number of Comparables Analysed: %d", r.val.ComparableCount))
	r.line("Average Comparable Value: " + Currency(r.val.AverageComparable))
	r.line(fmt.Sprintf("Market Adjustment Factor: %.1f%%", adj))
	r.line(r.pricePerArea())
}

func (r *report) opinionBox() {
	pdf := r.pdf
	r.needs(40)
	pdf.Ln(6)
	y := pdf.GetY()
	r.fill(navy)
	pdf.Rect(margin-5, y, bodyW+10, 30, "F")
	r.color(white)
	pdf.SetXY(margin, y+3)
	r.font("B", 14)
	pdf.CellFormat(bodyW, 7, "OPINION OF MARKET VALUE", "", 2, "L", false, 0, "")
	r.font("B", 20)
	pdf.CellFormat(bodyW, 10, r.tr(Currency(r.val.EstimatedValue)), "", 2, "L", false, 0, "")
	r.font("", 10)
	pdf.CellFormat(bodyW, 6, r.tr(fmt.Sprintf("Valuation Range: %s - %s",
		Currency(r.val.LowerRange), Currency(r.val.UpperRange))), "", 2, "L", false, 0, "")
	pdf.SetY(y + 36)
	r.color(black)
}

func (r *report) textSection(title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	r.needs(30)
	r.heading(title, 12)
	r.line(body)
}

func (r *report) declaration() {
	v := r.rec.Valuer
	r.heading("RICS RED BOOK COMPLIANCE", 12)
	r.line(complianceText)
	r.pdf.Ln(4)
	r.heading("VALUER DECLARATION", 12)
	r.line(fmt.Sprintf("Valuer: %s, %s", orNotSpecified(v.Name), orNotSpecified(v.Qualification)))
	r.line("Company: " + orNotSpecified(v.Company))
	if v.CompanyAddress != "" {
		r.line("Address: " + v.CompanyAddress)
	}
	r.pdf.Ln(lineH)
	r.line(declarationText)
	r.pdf.Ln(10)
	r.line("Signature: _______________________________")
	r.pdf.Ln(4)
	r.line("Date: " + r.now.Format(displayDate))
}
