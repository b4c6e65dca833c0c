package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageDownloadsToScratchFile(t *testing.T) {
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		_, _ = w.Write([]byte("fake image bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	s := NewStager(Config{ScratchDir: dir, Username: "AC123", Password: "token"}, nil)

	path, err := s.Stage(context.Background(), srv.URL)
	require.NoError(t, err)
	defer func() { _ = s.Remove(path) }()

	assert.Equal(t, "AC123", gotUser)
	assert.Equal(t, "token", gotPass)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Regexp(t, regexp.MustCompile(`^invoice_[0-9a-f]{32}\.img$`), filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fake image bytes", string(data))
}

func TestStageScratchNamesAreDistinct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	s := NewStager(Config{ScratchDir: t.TempDir()}, nil)

	const n = 16
	var (
		mu    sync.Mutex
		paths = make(map[string]struct{}, n)
		wg    sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := s.Stage(context.Background(), srv.URL)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			paths[p] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	// pairwise distinct across simultaneous invocations
	assert.Len(t, paths, n)
	for p := range paths {
		_ = s.Remove(p)
	}
}

func TestStageNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	s := NewStager(Config{ScratchDir: dir}, nil)

	_, err := s.Stage(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")

	// no scratch file left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStageUnreachableHost(t *testing.T) {
	s := NewStager(Config{ScratchDir: t.TempDir()}, nil)

	_, err := s.Stage(context.Background(), "http://127.0.0.1:1/nothing")
	require.Error(t, err)
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	s := NewStager(Config{ScratchDir: dir}, nil)

	path := filepath.Join(dir, "invoice_deadbeef.img")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	require.NoError(t, s.Remove(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// removing twice, or removing nothing, is fine
	require.NoError(t, s.Remove(path))
	require.NoError(t, s.Remove(""))
}
