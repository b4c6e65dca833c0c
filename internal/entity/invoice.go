package entity

import "time"

// Invoice represents one extracted invoice for data transfer between layers.
// It is constructed in full by the extractor and never mutated afterwards.
type Invoice struct {
	InvoiceNumber  string    `json:"invoice_id"`
	TotalAmount    float64   `json:"total_amount"`
	DueDate        time.Time `json:"due_date"`
	SenderWhatsApp string    `json:"sender_whatsapp"`
}

// DueDateString renders the due date the way the API reports it.
func (i Invoice) DueDateString() string {
	return i.DueDate.Format("2006-01-02")
}
