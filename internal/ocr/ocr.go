package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	TesseractLang string // default "eng"
	TessdataDir   string
}

// Fragment is one recognized word with its bounding box and confidence.
type Fragment struct {
	Text       string
	Left       int
	Top        int
	Width      int
	Height     int
	Confidence float32 // 0..1
}

// Engine runs tesseract over a staged image and returns positioned text
// fragments. It is constructed once at startup and injected wherever
// recognition is needed; there is no package-level engine handle.
type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	return &Engine{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Recognize runs tesseract in TSV mode on the image at path.
// A readable image with no detectable words yields an empty slice, not an
// error; the caller decides what an empty result means.
func (e *Engine) Recognize(ctx context.Context, path string) ([]Fragment, error) {
	start := time.Now()

	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}

	frags := parseTSV(string(out))
	e.logger.Debug("ocr.recognize.ok",
		"path", path,
		"fragments", len(frags),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return frags, nil
}

// parseTSV reads tesseract TSV output. Columns:
// level page block par line word left top width height conf text.
// Rows with conf -1 are layout rows, not words.
func parseTSV(out string) []Fragment {
	var frags []Fragment
	lines := strings.Split(out, "\n")
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue // skip header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[10]
		if confStr == "" || confStr == "-1" {
			continue
		}
		conf, err := strconv.ParseFloat(confStr, 64)
		if err != nil {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		left, _ := strconv.Atoi(cols[6])
		top, _ := strconv.Atoi(cols[7])
		width, _ := strconv.Atoi(cols[8])
		height, _ := strconv.Atoi(cols[9])
		frags = append(frags, Fragment{
			Text:       text,
			Left:       left,
			Top:        top,
			Width:      width,
			Height:     height,
			Confidence: float32(conf / 100.0),
		})
	}
	return frags
}

// Flatten space-joins all non-empty fragment text in engine order into the
// single logical line the extractor matches against.
func Flatten(frags []Fragment) string {
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		if f.Text != "" {
			parts = append(parts, f.Text)
		}
	}
	return strings.Join(parts, " ")
}
