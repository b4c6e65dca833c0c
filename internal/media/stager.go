package media

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	ScratchDir string        // default os.TempDir()
	Timeout    time.Duration // default 30s
	Username   string        // basic auth for the media host, optional
	Password   string
}

// Stager downloads inbound media into a uniquely named scratch file.
// The name is derived from a fresh random token, never from the URL, so
// concurrent requests cannot collide or overwrite one another's files.
type Stager struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func NewStager(cfg Config, logger *slog.Logger) *Stager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Stager{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Stage fetches url and writes the body to a scratch file, returning its path.
// Any error leaves no file behind.
func (s *Stager) Stage(ctx context.Context, url string) (string, error) {
	path := filepath.Join(s.cfg.ScratchDir, scratchName())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build media request: %w", err)
	}
	if s.cfg.Username != "" {
		req.SetBasicAuth(s.cfg.Username, s.cfg.Password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("download media: unexpected status %d", resp.StatusCode)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write scratch file: %w", err)
	}

	s.logger.Info("media.stage.ok", "path", path, "bytes", n)
	return path, nil
}

// Remove deletes a staged file. A file that is already gone is not an error.
func (s *Stager) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// scratchName renders a fresh 128-bit token as invoice_<hex>.img.
func scratchName() string {
	u := uuid.New()
	return fmt.Sprintf("invoice_%s.img", hex.EncodeToString(u[:]))
}
