package exchange

import (
	"strings"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
)

const (
	DefaultParticulars = "Old Gold Exchange"

	descriptionLabel = "Description:"
	hsnLabel         = "HSN Code:"
	clauseSeparator  = " | "
)

// EncodeNotes writes the legacy notes column. Empty clauses are omitted and
// an exchange with neither yields "".
func EncodeNotes(particulars, hsn string) string {
	clauses := make([]string, 0, 2)
	if p := strings.TrimSpace(particulars); p != "" {
		clauses = append(clauses, descriptionLabel+" "+p)
	}
	if h := strings.TrimSpace(hsn); h != "" {
		clauses = append(clauses, hsnLabel+" "+h)
	}
	return strings.Join(clauses, clauseSeparator)
}

// DecodeNotes reads the legacy notes column. Missing or blank clauses fall
// back to DefaultParticulars and domain.DefaultExchangeHSN.
func DecodeNotes(notes string) (particulars string, hsn string) {
	particulars = DefaultParticulars
	hsn = domain.DefaultExchangeHSN

	for _, clause := range strings.Split(notes, "|") {
		clause = strings.TrimSpace(clause)
		switch {
		case strings.HasPrefix(clause, descriptionLabel):
			if v := strings.TrimSpace(strings.TrimPrefix(clause, descriptionLabel)); v != "" {
				particulars = v
			}
		case strings.HasPrefix(clause, hsnLabel):
			if v := strings.TrimSpace(strings.TrimPrefix(clause, hsnLabel)); v != "" {
				hsn = v
			}
		}
	}
	return particulars, hsn
}

// Describe returns the particulars and HSN code of a stored row, preferring
// the explicit columns and decoding notes for rows written before they existed.
func Describe(row domain.OldGoldExchange) (particulars string, hsn string) {
	decodedParticulars, decodedHSN := DecodeNotes(row.Notes)
	particulars, hsn = row.Particulars, row.HSNCode
	if strings.TrimSpace(particulars) == "" {
		particulars = decodedParticulars
	}
	if strings.TrimSpace(hsn) == "" {
		hsn = decodedHSN
	}
	return particulars, hsn
}
