package extract

import (
	"encoding/hex"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/intakehq/invoice-intake/internal/entity"
)

// SynthesizedIDPrefix marks invoice numbers that were generated rather than
// read off the document.
const SynthesizedIDPrefix = "INV-"

// Pattern order is priority order: the first matching pattern wins and later
// ones are never consulted. Do not reorder.
var invoiceIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)invoice\s*(?:no\.?|number|#)\s*:?\s*([A-Z0-9-]+)`),
	regexp.MustCompile(`(?i)inv\s*(?:no\.?|#)\s*:?\s*([A-Z0-9-]+)`),
	regexp.MustCompile(`(?i)bill\s*(?:no\.?|number|#)\s*:?\s*([A-Z0-9-]+)`),
	regexp.MustCompile(`(?i)reference\s*(?:no\.?|number|#)\s*:?\s*([A-Z0-9-]+)`),
}

var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)total\s*(?:amount)?\s*:?\s*[$£€₹]?\s*([0-9,]+\.?\d*)`),
	regexp.MustCompile(`(?i)amount\s*(?:due|total)?\s*:?\s*[$£€₹]?\s*([0-9,]+\.?\d*)`),
	regexp.MustCompile(`(?i)grand\s*total\s*:?\s*[$£€₹]?\s*([0-9,]+\.?\d*)`),
	regexp.MustCompile(`(?i)balance\s*(?:due)?\s*:?\s*[$£€₹]?\s*([0-9,]+\.?\d*)`),
	regexp.MustCompile(`(?i)[$£€₹]\s*([0-9,]+\.?\d*)\s*(?:total|due|balance)`),
}

var dueDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)due\s*(?:date|by)?\s*:?\s*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`),
	regexp.MustCompile(`(?i)payment\s*due\s*:?\s*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`),
	regexp.MustCompile(`(?i)payable\s*by\s*:?\s*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`),
	regexp.MustCompile(`(?i)due\s*on\s*:?\s*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`),
}

// Candidate layouts for a captured date token, day-first before month-first
// per separator. Two-digit years are captured by the patterns but parse with
// none of these layouts, so they fall back to the processing date.
var dueDateLayouts = []string{
	"2/1/2006", "1/2/2006",
	"2-1-2006", "1-2-2006",
	"2.1.2006", "1.2.2006",
}

// Extractor maps raw recognized text to a fully populated invoice record.
// Extract never fails: every field has a deterministic or synthesized
// fallback, so the pipeline stays total once recognition has succeeded.
type Extractor struct {
	logger   *slog.Logger
	now      func() time.Time
	newToken func() string
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		logger:   logger,
		now:      time.Now,
		newToken: randomToken,
	}
}

// randomToken returns 32 bits of randomness as 8 uppercase hex characters.
func randomToken() string {
	u := uuid.New()
	return strings.ToUpper(hex.EncodeToString(u[:4]))
}

// Extract parses invoice number, total amount, and due date out of rawText
// and combines them with the sender identity supplied by the transport layer.
func (e *Extractor) Extract(rawText, senderWhatsApp string) entity.Invoice {
	inv := entity.Invoice{
		InvoiceNumber:  e.extractInvoiceNumber(rawText),
		TotalAmount:    e.extractTotalAmount(rawText),
		DueDate:        e.extractDueDate(rawText),
		SenderWhatsApp: senderWhatsApp,
	}
	e.logger.Info("extract.ok",
		"invoice_id", inv.InvoiceNumber,
		"total_amount", inv.TotalAmount,
		"due_date", inv.DueDateString(),
	)
	return inv
}

func (e *Extractor) extractInvoiceNumber(text string) string {
	for _, re := range invoiceIDPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			id := strings.TrimSpace(m[1])
			e.logger.Info("extract.id.found", "invoice_id", id)
			return id
		}
	}
	id := SynthesizedIDPrefix + e.newToken()
	e.logger.Warn("extract.id.fallback", "invoice_id", id)
	return id
}

func (e *Extractor) extractTotalAmount(text string) float64 {
	for _, re := range amountPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		// strip thousands separators; an unparseable token moves on to the
		// next pattern instead of aborting
		raw := strings.ReplaceAll(m[1], ",", "")
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		e.logger.Info("extract.amount.found", "total_amount", amount)
		return amount
	}
	e.logger.Warn("extract.amount.fallback", "total_amount", 0.00)
	return 0.00
}

func (e *Extractor) extractDueDate(text string) time.Time {
	for _, re := range dueDatePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		for _, layout := range dueDateLayouts {
			if d, err := time.Parse(layout, m[1]); err == nil {
				e.logger.Info("extract.due_date.found", "due_date", d.Format("2006-01-02"))
				return d
			}
		}
	}
	today := e.today()
	e.logger.Warn("extract.due_date.fallback", "due_date", today.Format("2006-01-02"))
	return today
}

func (e *Extractor) today() time.Time {
	now := e.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
