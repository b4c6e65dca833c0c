package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/intakehq/invoice-intake/internal/export"
	"github.com/intakehq/invoice-intake/internal/pipeline"
	"github.com/intakehq/invoice-intake/internal/repository"
)

// Intake runs one request through the invoice pipeline.
type Intake interface {
	Run(ctx context.Context, req pipeline.Request) pipeline.Outcome
}

// Server wires the inbound HTTP surface to the pipeline and read-side services.
type Server struct {
	intake   Intake
	invoices repository.InvoiceRepository
	exporter *export.Service
	health   func(ctx context.Context) error
	logger   *slog.Logger
}

func New(intake Intake, invoices repository.InvoiceRepository, exporter *export.Service, health func(ctx context.Context) error, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		intake:   intake,
		invoices: invoices,
		exporter: exporter,
		health:   health,
		logger:   logger,
	}
}

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(
		RequestID(),
		RequestLogger(s.logger),
		gin.CustomRecovery(func(c *gin.Context, _ any) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "An unexpected error occurred while processing your invoice. Please try again later.",
			})
		}),
	)

	r.POST("/api/whatsapp/webhook", s.handleWebhook)
	r.GET("/api/invoices", s.handleListInvoices)
	r.GET("/api/invoices/export", s.handleExport)
	r.GET("/healthz", s.handleHealth)
	return r
}

type webhookForm struct {
	MediaURL string `form:"MediaUrl0"`
	From     string `form:"From" binding:"required"`
}

// handleWebhook is the inbound WhatsApp webhook. A missing sender is a
// request-shape violation rejected here; everything else is classified by
// the pipeline.
func (s *Server) handleWebhook(c *gin.Context) {
	var form webhookForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "From is required"})
		return
	}

	out := s.intake.Run(c.Request.Context(), pipeline.Request{
		MediaURL:       form.MediaURL,
		SenderWhatsApp: form.From,
	})
	if out.Code != pipeline.CodeOK {
		c.JSON(statusFor(out.Code), gin.H{"error": out.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "success",
		"invoice_id":   out.Invoice.InvoiceNumber,
		"total_amount": out.Invoice.TotalAmount,
		"due_date":     out.Invoice.DueDateString(),
		"message":      out.Message,
	})
}

// statusFor maps a pipeline outcome onto its HTTP status class.
func statusFor(code pipeline.Code) int {
	switch code {
	case pipeline.CodeMissingMedia, pipeline.CodeDownloadFailed, pipeline.CodeUnreadable:
		return http.StatusBadRequest
	case pipeline.CodeMissingConfig, pipeline.CodePersistFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListInvoices(c *gin.Context) {
	from, to, ok := dateWindow(c)
	if !ok {
		return
	}

	invs, err := s.invoices.List(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list invoices. Please try again later."})
		return
	}

	items := make([]gin.H, 0, len(invs))
	for _, inv := range invs {
		items = append(items, gin.H{
			"invoice_id":      inv.InvoiceNumber,
			"total_amount":    inv.TotalAmount,
			"due_date":        inv.DueDateString(),
			"sender_whatsapp": inv.SenderWhatsApp,
		})
	}
	c.JSON(http.StatusOK, gin.H{"invoices": items})
}

func (s *Server) handleExport(c *gin.Context) {
	from, to, ok := dateWindow(c)
	if !ok {
		return
	}

	data, err := s.exporter.ExportInvoicesXLSX(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export invoices. Please try again later."})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="invoices.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// dateWindow parses optional from/to query params as YYYY-MM-DD.
// On a malformed value it writes a 400 response and reports !ok.
func dateWindow(c *gin.Context) (from, to *time.Time, ok bool) {
	if v := c.Query("from"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
			return nil, nil, false
		}
		from = &d
	}
	if v := c.Query("to"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
			return nil, nil, false
		}
		to = &d
	}
	return from, to, true
}
