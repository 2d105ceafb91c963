// Package imagegen fetches images from a public text-to-image HTTP endpoint.
// The service is treated as opaque: a GET on a templated URL that either
// returns a decodable image or counts as failed.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tomgalvin.uk/sketchprint/internal/render"
)

var (
	// The image couldn't be fetched from the service
	ErrCaptureFailed = errors.New("couldn't fetch generated image")
	// The service answered with something that isn't an image
	ErrDecodeFailed = errors.New("couldn't decode generated image")
)

// Placeholder replaced by the escaped prompt in URL templates
const PromptPlaceholder = "{prompt}"

// Upper bound on a generated image, anything larger is rejected
const maxImageBytes = 16 << 20

type Client struct {
	URLTemplate string
	// Appended to every prompt so generated images print well
	Style string
	HTTP  *http.Client
}

func NewClient(urlTemplate, style string) *Client {
	return &Client{
		URLTemplate: urlTemplate,
		Style:       style,
		HTTP:        &http.Client{Timeout: 60 * time.Second},
	}
}

// URL returns the request URL for prompt, with the style appended and the
// whole prompt escaped into the template.
func (c *Client) URL(prompt string) string {
	full := strings.TrimSpace(prompt)
	if c.Style != "" {
		full += ", " + c.Style
	}
	return strings.ReplaceAll(c.URLTemplate, PromptPlaceholder, url.PathEscape(full))
}

func (c *Client) Generate(ctx context.Context, prompt string) (image.Image, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("Prompt is empty")
	}
	if c.URLTemplate == "" {
		return nil, fmt.Errorf("%w: no image service configured", ErrCaptureFailed)
	}

	u := c.URL(prompt)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w:\n%w", ErrCaptureFailed, err)
	}

	slog.Info("Requesting generated image", "url", u)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w:\n%w", ErrCaptureFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: service returned %s", ErrCaptureFailed, resp.Status)
	}

	img, format, err := render.Decode(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w:\n%w", ErrDecodeFailed, err)
	}
	slog.Debug("Decoded generated image", "format", format, "bounds", img.Bounds())
	return img, nil
}
