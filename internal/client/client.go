package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Belphemur/ImageTranslate/internal/config"
)

// maxImageSize bounds how much of a result image is read into memory.
const maxImageSize = 50 << 20

// ImageClient downloads translated images that the page serves over http(s).
type ImageClient interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, string, error)
}

// imageClient implements the ImageClient interface
type imageClient struct {
	httpClient *http.Client
	userAgent  string
}

// NewImageClient creates an image client that goes through proxyURL when it is set,
// so downloads leave through the same exit as the browser session.
func NewImageClient(proxyURL string, timeout time.Duration, userAgent string) ImageClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Clone DefaultTransport to preserve all its settings (timeouts, connection pooling, HTTP/2, etc.)
	baseTransport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			logger := config.GetLogger()
			logger.Warn().Err(err).Str("proxy", proxyURL).Msg("Invalid proxy URL, continuing without proxy")
		} else {
			baseTransport.Proxy = http.ProxyURL(parsed)
		}
	}

	return &imageClient{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: newDecodingTransport(baseTransport),
		},
		userAgent: userAgent,
	}
}

// Fetch downloads imageURL and returns the body with its Content-Type.
func (c *imageClient) Fetch(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/png,image/*;q=0.8,*/*;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &StatusError{URL: imageURL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) > maxImageSize {
		return nil, "", fmt.Errorf("image at %s exceeds %d bytes", imageURL, maxImageSize)
	}

	return data, resp.Header.Get("Content-Type"), nil
}
