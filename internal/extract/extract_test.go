package extract

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor() *Extractor {
	e := NewExtractor(nil)
	e.now = func() time.Time {
		return time.Date(2024, time.June, 10, 14, 30, 0, 0, time.UTC)
	}
	return e
}

func TestExtractInvoiceNumber(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"labeled with colon", "Invoice No: ABC-123 Total: $5.00", "ABC-123"},
		{"hash form", "Invoice #INV-55 Total Due: $250.00", "INV-55"},
		{"inv abbreviation", "INV NO. 778899", "778899"},
		{"bill number", "Bill Number: B-42", "B-42"},
		{"reference number", "reference no: REF-9", "REF-9"},
		{"case insensitive", "iNvOiCe NuMbEr: x9y8", "x9y8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := e.Extract(tt.text, "whatsapp:+15550001111")
			assert.Equal(t, tt.want, inv.InvoiceNumber)
		})
	}
}

func TestExtractInvoiceNumberPriority(t *testing.T) {
	e := newTestExtractor()

	// an invoice label wins over a reference label regardless of position
	inv := e.Extract("Reference No: REF-1 ... Invoice No: INV-2", "w")
	assert.Equal(t, "INV-2", inv.InvoiceNumber)
}

func TestExtractInvoiceNumberFallback(t *testing.T) {
	e := newTestExtractor()

	inv := e.Extract("no identifier labels here", "w")
	require.NotEmpty(t, inv.InvoiceNumber)
	assert.Regexp(t, regexp.MustCompile(`^INV-[0-9A-F]{8}$`), inv.InvoiceNumber)

	// synthesized ids differ across calls
	other := e.Extract("no identifier labels here", "w")
	assert.NotEqual(t, inv.InvoiceNumber, other.InvoiceNumber)
}

func TestExtractTotalAmount(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		name string
		text string
		want float64
	}{
		{"total with thousands separator", "Total: $1,234.56", 1234.56},
		{"total amount", "Total Amount: 99.95", 99.95},
		{"amount due", "Amount Due: £45", 45},
		{"grand total", "GRAND TOTAL: €2,000.00", 2000},
		{"balance due", "Balance due: ₹310.50", 310.50},
		{"symbol before keyword after", "$250.00 due by Friday", 250},
		{"no amount at all", "nothing to see", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := e.Extract(tt.text, "w")
			assert.InDelta(t, tt.want, inv.TotalAmount, 0.0001)
		})
	}
}

func TestExtractTotalAmountSkipsUnparseableToken(t *testing.T) {
	e := newTestExtractor()

	// the "total" pattern structurally matches a bare comma; parsing fails and
	// the search continues down the list instead of aborting
	inv := e.Extract("Total: , Balance: $50.00", "w")
	assert.InDelta(t, 50.00, inv.TotalAmount, 0.0001)
}

func TestExtractDueDate(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{"slash day first", "Due Date: 15/03/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"slash month first fallback", "Due Date: 03/25/2024", time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)},
		{"dash separator", "Payment due: 7-12-2025", time.Date(2025, 12, 7, 0, 0, 0, 0, time.UTC)},
		{"dot separator", "Payable by 01.02.2026", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"due on", "due on: 9/9/2024", time.Date(2024, 9, 9, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := e.Extract(tt.text, "w")
			assert.Equal(t, tt.want, inv.DueDate)
		})
	}
}

func TestExtractDueDateFallsBackToToday(t *testing.T) {
	e := newTestExtractor()
	today := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		text string
	}{
		{"no date label", "Total: $10.00"},
		{"malformed token", "Due Date: 99/99/2024"},
		{"two digit year", "Due Date: 15/03/24"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := e.Extract(tt.text, "w")
			assert.Equal(t, today, inv.DueDate)
		})
	}
}

func TestExtractEndToEndText(t *testing.T) {
	e := newTestExtractor()

	inv := e.Extract("Invoice #INV-55 Total Due: $250.00 Due by 01/05/2025", "whatsapp:+14155550100")
	assert.Equal(t, "INV-55", inv.InvoiceNumber)
	assert.InDelta(t, 250.00, inv.TotalAmount, 0.0001)
	assert.Equal(t, "2025-05-01", inv.DueDateString())
	assert.Equal(t, "whatsapp:+14155550100", inv.SenderWhatsApp)
}

func TestExtractNeverFailsOnGarbage(t *testing.T) {
	e := newTestExtractor()

	for _, text := range []string{"", "   ", "\n\n\n", "£££ ::: ---", "total total total"} {
		inv := e.Extract(text, "w")
		assert.NotEmpty(t, inv.InvoiceNumber)
		assert.GreaterOrEqual(t, inv.TotalAmount, 0.0)
		assert.False(t, inv.DueDate.IsZero())
	}
}
