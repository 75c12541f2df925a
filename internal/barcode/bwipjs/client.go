// Package bwipjs implements the barcode.Engine interface against a bwip-js
// render server. The server is a black box: it answers a pdf417 render
// request with PNG bytes, or a non-2xx status whose body carries the raw
// BWIPP error message.
package bwipjs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cardgen/internal/barcode"
)

const (
	symbology = "pdf417"

	// Fixed rendering geometry; only eclevel and columns are caller-tunable.
	scale    = 3
	heightMM = 25

	// Render responses are small PNGs; cap reads defensively.
	maxResponseBytes = 4 << 20
)

// Client renders PDF417 symbols through a bwip-js API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a bwip-js engine client. The timeout bounds every render
// round-trip.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ barcode.Engine = (*Client)(nil)

// RenderSymbol requests a pdf417 render and returns the PNG bytes. Engine
// failures surface as errors carrying the server's message text verbatim so
// the adapter can classify them.
func (c *Client) RenderSymbol(ctx context.Context, payload string, opts barcode.RenderOptions) ([]byte, error) {
	query := url.Values{}
	query.Set("bcid", symbology)
	query.Set("text", payload)
	query.Set("scale", strconv.Itoa(scale))
	query.Set("height", strconv.Itoa(heightMM))
	query.Set("includetext", "false")
	query.Set("eclevel", strconv.Itoa(opts.ErrorCorrectionLevel))
	query.Set("columns", strconv.Itoa(opts.Columns))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build render request: %w", err)
	}
	req.Header.Set("Accept", "image/png")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Surface client timeouts as context.DeadlineExceeded so callers can
		// distinguish them from engine rejections.
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return nil, fmt.Errorf("render request: %w", context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("render request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read render response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := strings.TrimSpace(string(body))
		if message == "" {
			message = resp.Status
		}
		return nil, fmt.Errorf("bwipjs: %s", message)
	}
	return body, nil
}
