package index

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/chainguard-dev/clog"
	"github.com/hashicorp/go-retryablehttp"
)

// cacheTTL is how long a fetched index is reused before the channel is
// queried again.
const cacheTTL = time.Hour

// Get loads a channel index from a local path or, when the location is an
// http(s) URL, fetches it with retries and a local cache.
func Get(ctx context.Context, location string) (*Index, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return Fetch(ctx, location)
	}
	return Load(location)
}

// Fetch downloads a channel index over HTTP. Responses are cached under the
// user cache directory and reused for cacheTTL; on a network failure a stale
// cache entry is still used.
func Fetch(ctx context.Context, url string) (*Index, error) {
	log := clog.FromContext(ctx)

	cachePath, err := cacheFile(url)
	if err != nil {
		return nil, err
	}

	if fi, err := os.Stat(cachePath); err == nil && time.Since(fi.ModTime()) < cacheTTL {
		log.Debugf("using cached channel index %s for %s", cachePath, url)
		return Load(cachePath)
	}

	data, err := fetch(ctx, url)
	if err != nil {
		if _, statErr := os.Stat(cachePath); statErr == nil {
			log.Warnf("fetching %s failed (%v), falling back to cached index", url, err)
			return Load(cachePath)
		}
		return nil, err
	}

	idx, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("channel index from %s: %w", url, err)
	}

	if err := os.WriteFile(cachePath, data, 0o644); err != nil {
		log.Warnf("unable to cache channel index: %v", err)
	}
	return idx, nil
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	client := retryablehttp.NewClient()
	client.Logger = nil

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching channel index %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching channel index %s: unexpected status %s", url, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

func cacheFile(url string) (string, error) {
	sum := sha256.Sum256([]byte(url))
	name := filepath.Join("recipectl", "index", fmt.Sprintf("%x.json", sum[:8]))
	path, err := xdg.CacheFile(name)
	if err != nil {
		return "", fmt.Errorf("resolving cache path for %s: %w", url, err)
	}
	return path, nil
}
