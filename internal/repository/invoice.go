package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/intakehq/invoice-intake/internal/entity"
)

// InvoiceRepository is the persistence gateway for extracted invoices.
// Insert is a single durable append; there is no update or delete path.
type InvoiceRepository interface {
	Insert(ctx context.Context, inv entity.Invoice) error
	List(ctx context.Context, from, to *time.Time) ([]entity.Invoice, error)
}

type invoiceRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewInvoiceRepository(pool *pgxpool.Pool, logger *slog.Logger) InvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceRepository{pool: pool, logger: logger}
}

func (r *invoiceRepository) Insert(ctx context.Context, inv entity.Invoice) error {
	const q = `
INSERT INTO invoices (invoice_number, total_amount, due_date, sender_whatsapp)
VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, q, inv.InvoiceNumber, inv.TotalAmount, inv.DueDate, inv.SenderWhatsApp)
	if err != nil {
		r.logger.Error("failed to insert invoice", "invoice_id", inv.InvoiceNumber, "error", err)
		return err
	}
	r.logger.Info("invoice saved", "invoice_id", inv.InvoiceNumber)
	return nil
}

func (r *invoiceRepository) List(ctx context.Context, from, to *time.Time) ([]entity.Invoice, error) {
	q := `
SELECT invoice_number, total_amount, due_date, sender_whatsapp
FROM invoices`
	args := make([]any, 0, 2)
	switch {
	case from != nil && to != nil:
		q += " WHERE due_date >= $1 AND due_date <= $2"
		args = append(args, *from, *to)
	case from != nil:
		q += " WHERE due_date >= $1"
		args = append(args, *from)
	case to != nil:
		q += " WHERE due_date <= $1"
		args = append(args, *to)
	}
	q += " ORDER BY due_date"

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error("failed to list invoices", "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []entity.Invoice
	for rows.Next() {
		var inv entity.Invoice
		if err := rows.Scan(&inv.InvoiceNumber, &inv.TotalAmount, &inv.DueDate, &inv.SenderWhatsApp); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
