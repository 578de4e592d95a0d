package render

import (
	"math"
	"strings"
	"time"

	"rics-valuation/internal/domain"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	isoDate     = "2006-01-02"
	displayDate = "02 January 2006"
)

var gbPrinter = message.NewPrinter(language.BritishEnglish)

// Currency formats whole pounds with en-GB grouping, e.g. £537,250.
func Currency(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount == 0 {
		return "£0"
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + "£" + gbPrinter.Sprintf("%d", int64(math.Floor(amount+0.5)))
}

// Date renders a yyyy-mm-dd form value as "02 January 2006". Values that do
// not parse are printed as entered.
func Date(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Not specified"
	}
	t, err := time.Parse(isoDate, s)
	if err != nil {
		return s
	}
	return t.Format(displayDate)
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}

func areaUnit(u string) string {
	switch strings.ToLower(strings.TrimSpace(u)) {
	case "sqm", "sq m", "m2", "sqmetres", "sq metres":
		return "sq m"
	}
	return "sq ft"
}

// Filename is the download name for a report, e.g.
// RICS_Valuation_SW1A_1AA_2024-06-01.pdf.
func Filename(rec *domain.ValuationRecord, now time.Time) string {
	postcode := strings.TrimSpace(rec.Property.Postcode)
	if postcode == "" {
		postcode = "DRAFT"
	}
	postcode = strings.Join(strings.Fields(postcode), "_")
	return "RICS_Valuation_" + postcode + "_" + now.Format(isoDate) + ".pdf"
}
