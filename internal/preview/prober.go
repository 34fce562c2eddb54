// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

// Package preview classifies clip preview URLs as generated media versus the
// upstream's placeholder asset, so clients can decide whether a preview is
// worth requesting.
//
// Classification protocol: a ranged request reads only the total size.
// Anything that is not the placeholder's exact byte length is decided by a
// size threshold; the placeholder length itself is disambiguated by digest,
// since a legitimate preview can collide on length.
package preview

import (
	"context"
	"crypto/md5" //nolint:gosec // fingerprint comparison, not cryptography
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/curator-app/curator/internal/config"
	"github.com/curator-app/curator/internal/logging"
	"github.com/curator-app/curator/internal/metrics"
)

const (
	// placeholderLength is the exact byte size of the upstream's stock
	// placeholder preview.
	placeholderLength = 1199

	// placeholderDigest is the MD5 of the placeholder body, hex-encoded.
	placeholderDigest = "c4a2e6b6547057dd0ef0c7d7e3c420d4"

	// generatedMinBytes is the size threshold for non-placeholder-length
	// responses.
	generatedMinBytes = 5120
)

// Prober classifies preview URLs over a bounded worker pool.
type Prober struct {
	client      *http.Client
	concurrency int
}

// NewProber builds a prober from config.
func NewProber(cfg *config.ProberConfig) *Prober {
	return &Prober{
		client:      &http.Client{Timeout: cfg.RequestTimeout},
		concurrency: cfg.Concurrency,
	}
}

// Classify reports whether the URL serves a generated preview. Network and
// protocol failures classify as not generated with the error returned.
func (p *Prober) Classify(ctx context.Context, url string) (bool, error) {
	size, err := p.probeSize(ctx, url)
	if err != nil {
		return false, err
	}

	if size != placeholderLength {
		return size >= generatedMinBytes, nil
	}

	// The placeholder length itself: only the digest can tell a real
	// 1199-byte preview from the stock asset.
	digest, err := p.bodyDigest(ctx, url)
	if err != nil {
		return false, err
	}
	return digest != placeholderDigest, nil
}

// ClassifyAll probes every URL through the worker pool and returns the
// url -> generated map. Individual failures classify as false and do not
// fail the batch.
func (p *Prober) ClassifyAll(ctx context.Context, urls []string) map[string]bool {
	results := make([]bool, len(urls))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, url := range urls {
		g.Go(func() error {
			generated, err := p.Classify(gCtx, url)
			if err != nil {
				metrics.ProberClassifications.WithLabelValues("error").Inc()
				logging.Debug().Err(err).Str("url", url).Msg("Preview probe failed")
			} else if generated {
				metrics.ProberClassifications.WithLabelValues("generated").Inc()
			} else {
				metrics.ProberClassifications.WithLabelValues("placeholder").Inc()
			}
			results[i] = generated
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]bool, len(urls))
	for i, url := range urls {
		out[url] = results[i]
	}
	return out
}

// probeSize reads the total byte size via a one-byte range request.
func (p *Prober) probeSize(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		return totalFromContentRange(resp.Header.Get("Content-Range"))
	case http.StatusOK:
		if resp.ContentLength < 0 {
			return 0, fmt.Errorf("no content length on %s", url)
		}
		return resp.ContentLength, nil
	default:
		return 0, fmt.Errorf("unexpected status %d probing %s", resp.StatusCode, url)
	}
}

// bodyDigest fetches the whole body and returns its hex MD5.
func (p *Prober) bodyDigest(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	h := md5.New() //nolint:gosec // see package comment
	if _, err := io.Copy(h, resp.Body); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// totalFromContentRange parses "bytes 0-0/N".
func totalFromContentRange(header string) (int64, error) {
	slash := strings.LastIndexByte(header, '/')
	if slash < 0 {
		return 0, fmt.Errorf("malformed Content-Range %q", header)
	}
	total, err := strconv.ParseInt(header[slash+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed Content-Range %q: %w", header, err)
	}
	return total, nil
}
