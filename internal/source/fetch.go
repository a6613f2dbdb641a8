package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "chronoview/internal/log"
)

// Fetcher reads source bodies. Local paths are read directly; http(s) URLs
// are fetched with conditional requests (ETag / Last-Modified) and a
// disk-backed cache that is also used when the network fails.
type Fetcher struct {
	client   *http.Client
	cacheDir string
	log      *appLog.Logger
}

// cacheMeta holds HTTP cache metadata for a single URL.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewFetcher creates a Fetcher caching under cacheDir.
func NewFetcher(cacheDir string, logger *appLog.Logger) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./cache/ics-cache"
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		cacheDir: cacheDir,
		log:      logger,
	}
}

// Body is a fetched source payload.
type Body struct {
	Data      []byte
	FromCache bool
}

// Fetch returns the body of src.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (Body, error) {
	switch {
	case src.Path != "":
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return Body{}, fmt.Errorf("source %s: %w", src.ID, err)
		}
		return Body{Data: data}, nil
	case src.URL != "":
		return f.fetchURL(ctx, src)
	default:
		return Body{}, fmt.Errorf("source %s: neither url nor path set", src.ID)
	}
}

func (f *Fetcher) fetchURL(ctx context.Context, src Source) (Body, error) {
	dir := f.cacheDirFor(src.URL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Body{}, err
	}

	meta, _ := loadMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return Body{}, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			f.log.Error("source fetch failed, using cached body", err, "id", src.ID, "url", redactURL(src.URL))
			return Body{Data: cached, FromCache: true}, nil
		}
		return Body{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return Body{}, err
		}
		next := cacheMeta{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := saveCache(dir, next, data); err != nil {
			f.log.Error("source cache save failed", err, "id", src.ID, "url", redactURL(src.URL))
		}
		f.log.Debug("source fetched", "id", src.ID, "url", redactURL(src.URL), "bytes", len(data))
		return Body{Data: data}, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return Body{}, errors.New("received 304 Not Modified but no cached body available")
		}
		f.log.Debug("source not modified; using cache", "id", src.ID, "url", redactURL(src.URL))
		return Body{Data: cached, FromCache: true}, nil

	default:
		if len(cached) > 0 {
			f.log.Error("source fetch non-OK, using cached body", errors.New(resp.Status), "id", src.ID, "url", redactURL(src.URL))
			return Body{Data: cached, FromCache: true}, nil
		}
		return Body{}, errors.New(resp.Status)
	}
}

// cacheDirFor keys the cache by the first 8 bytes of the URL's SHA-256.
func (f *Fetcher) cacheDirFor(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadMeta(dir string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func saveCache(dir string, meta cacheMeta, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(dir, "body"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host so private feed tokens stay out of
// the logs.
func redactURL(u string) string {
	const redacted = "/...(redacted)"
	i := strings.Index(u, "://")
	if i < 0 {
		return "source://...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexAny(rest, "/?#"); j >= 0 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + redacted
}
