package pipeline

import (
	"context"
	"log/slog"

	"github.com/intakehq/invoice-intake/constants"
	"github.com/intakehq/invoice-intake/internal/entity"
	"github.com/intakehq/invoice-intake/internal/notify"
	"github.com/intakehq/invoice-intake/internal/ocr"
)

// Collaborator contracts. Each wraps exactly one external system; errors are
// translated into an outcome code at the call site and never travel further.
type Stager interface {
	Stage(ctx context.Context, url string) (string, error)
	Remove(path string) error
}

type Recognizer interface {
	Recognize(ctx context.Context, path string) ([]ocr.Fragment, error)
}

type Extractor interface {
	Extract(rawText, senderWhatsApp string) entity.Invoice
}

type InvoiceStore interface {
	Insert(ctx context.Context, inv entity.Invoice) error
}

type Messenger interface {
	Send(ctx context.Context, to, body string) error
}

// Code classifies how one intake run ended.
type Code int

const (
	CodeOK Code = iota
	CodeMissingMedia   // client error, nothing was attempted
	CodeMissingConfig  // server-side configuration error
	CodeDownloadFailed // media could not be fetched
	CodeUnreadable     // recognition produced no text
	CodePersistFailed  // invoice row was not written
)

// Request is one inbound intake request.
type Request struct {
	MediaURL       string
	SenderWhatsApp string
}

// Outcome is the data the transport layer renders into a response.
// Invoice is populated only when Code is CodeOK.
type Outcome struct {
	Code    Code
	Invoice entity.Invoice
	Message string
}

// Pipeline sequences staging, recognition, extraction, persistence, and
// notification for one request. Failures short-circuit downstream stages;
// scratch cleanup always runs before the outcome is returned.
type Pipeline struct {
	Stager    Stager
	Engine    Recognizer
	Extractor Extractor
	Invoices  InvoiceStore
	Messenger Messenger
	Logger    *slog.Logger

	// MessagingConfigured is false when the credentials needed for media
	// download and confirmation sending are absent from the environment.
	MessagingConfigured bool
}

func New(st Stager, eng Recognizer, ex Extractor, inv InvoiceStore, msg Messenger, configured bool, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Stager:              st,
		Engine:              eng,
		Extractor:           ex,
		Invoices:            inv,
		Messenger:           msg,
		MessagingConfigured: configured,
		Logger:              logger,
	}
}

// Run drives one request through the intake state machine:
// Received -> Staged -> Recognized -> Extracted -> Persisted -> Notified -> Completed,
// aborting from any state on the failures classified by Code.
func (p *Pipeline) Run(ctx context.Context, req Request) Outcome {
	state := constants.StateReceived
	p.Logger.Info("pipeline.received", "sender", req.SenderWhatsApp)

	if req.MediaURL == "" {
		p.Logger.Warn("pipeline.aborted", "state", state, "reason", "no media url")
		return Outcome{Code: CodeMissingMedia, Message: "No media found in the message."}
	}
	if !p.MessagingConfigured {
		p.Logger.Error("pipeline.aborted", "state", state, "reason", "messaging credentials missing")
		return Outcome{Code: CodeMissingConfig, Message: "Server configuration error. Please contact support."}
	}

	path, err := p.Stager.Stage(ctx, req.MediaURL)
	if err != nil {
		p.Logger.Error("pipeline.aborted", "state", state, "reason", "media download failed", "error", err)
		return Outcome{Code: CodeDownloadFailed, Message: "Failed to download the media file. Please check the file and try again."}
	}
	state = constants.StateStaged
	defer func() {
		if rmErr := p.Stager.Remove(path); rmErr != nil {
			p.Logger.Warn("pipeline.cleanup_failed", "path", path, "error", rmErr)
		}
	}()

	frags, err := p.Engine.Recognize(ctx, path)
	if err != nil {
		p.Logger.Error("pipeline.aborted", "state", state, "reason", "recognition failed", "error", err)
		return Outcome{Code: CodeUnreadable, Message: "Could not extract text from the image. Please ensure the image is clear and contains readable text."}
	}
	text := ocr.Flatten(frags)
	if text == "" {
		p.Logger.Warn("pipeline.aborted", "state", state, "reason", "no readable text")
		return Outcome{Code: CodeUnreadable, Message: "Could not extract text from the image. Please ensure the image is clear and contains readable text."}
	}
	state = constants.StateRecognized
	p.Logger.Info("pipeline.recognized", "text_bytes", len(text))

	// extraction is total: fallback values guarantee a usable record
	inv := p.Extractor.Extract(text, req.SenderWhatsApp)
	state = constants.StateExtracted

	if err := p.Invoices.Insert(ctx, inv); err != nil {
		p.Logger.Error("pipeline.aborted", "state", state, "reason", "persistence failed", "invoice_id", inv.InvoiceNumber, "error", err)
		return Outcome{Code: CodePersistFailed, Message: "Failed to save invoice data to database. Please try again later."}
	}
	state = constants.StatePersisted

	// best effort: the durable record already exists
	if err := p.Messenger.Send(ctx, req.SenderWhatsApp, notify.Confirmation(inv.InvoiceNumber)); err != nil {
		p.Logger.Warn("pipeline.notify_failed", "invoice_id", inv.InvoiceNumber, "error", err)
	} else {
		state = constants.StateNotified
		p.Logger.Info("pipeline.notified", "state", state, "invoice_id", inv.InvoiceNumber)
	}

	state = constants.StateCompleted
	p.Logger.Info("pipeline.completed", "state", state, "invoice_id", inv.InvoiceNumber, "sender", req.SenderWhatsApp)
	return Outcome{Code: CodeOK, Invoice: inv, Message: "Invoice processed successfully"}
}
