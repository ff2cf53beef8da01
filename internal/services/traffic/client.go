package traffic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"airtrack/internal/config"
	"airtrack/internal/services"
)

// HTTPDoer describes the HTTP client used by the traffic service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Take is a recorded voice take as reported by the traffic backend.
type Take struct {
	ID              int64     `json:"id"`
	BreakID         int64     `json:"break_id"`
	TakeNumber      int       `json:"take_number"`
	Filename        string    `json:"filename"`
	IsSelected      bool      `json:"is_selected"`
	DurationSeconds float64   `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

// Client talks to the traffic backend voice endpoints.
type Client struct {
	baseURL string
	token   string
	client  HTTPDoer
}

// NewClient constructs a traffic client from configuration.
func NewClient(cfg *config.Config) *Client {
	if cfg == nil {
		return &Client{client: http.DefaultClient}
	}
	timeout := time.Duration(cfg.Traffic.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.Traffic.BaseURL, "/"),
		token:   cfg.Traffic.APIToken,
		client:  &http.Client{Timeout: timeout},
	}
}

// NewClientWithDoer constructs a traffic client with an injected HTTP doer,
// used by tests.
func NewClientWithDoer(baseURL, token string, doer HTTPDoer) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		client:  doer,
	}
}

// UploadTake uploads finalized audio for a break and returns the created
// take.
func (c *Client) UploadTake(ctx context.Context, breakID int64, filename string, wav []byte) (*Take, error) {
	endpoint := fmt.Sprintf("%s/voice/breaks/%d/record", c.baseURL, breakID)
	body, contentType, err := multipartAudio(filename, wav)
	if err != nil {
		return nil, services.Wrap(services.ErrUploadFailed, "traffic", "upload take", "build multipart body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, services.Wrap(services.ErrUploadFailed, "traffic", "upload take", "build request", err)
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req)

	var take Take
	if err := c.do(req, &take, "upload take"); err != nil {
		return nil, err
	}
	return &take, nil
}

// UploadStandalone uploads an untargeted test recording.
func (c *Client) UploadStandalone(ctx context.Context, filename string, wav []byte) (*Take, error) {
	endpoint := c.baseURL + "/voice/recordings/standalone"
	body, contentType, err := multipartAudio(filename, wav)
	if err != nil {
		return nil, services.Wrap(services.ErrUploadFailed, "traffic", "upload standalone", "build multipart body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, services.Wrap(services.ErrUploadFailed, "traffic", "upload standalone", "build request", err)
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req)

	var take Take
	if err := c.do(req, &take, "upload standalone"); err != nil {
		return nil, err
	}
	return &take, nil
}

// ListTakes returns the takes for a break ordered by take number.
func (c *Client) ListTakes(ctx context.Context, breakID int64) ([]Take, error) {
	endpoint := fmt.Sprintf("%s/voice/breaks/%d/takes", c.baseURL, breakID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build list takes request: %w", err)
	}
	c.authorize(req)

	var takes []Take
	if err := c.do(req, &takes, "list takes"); err != nil {
		return nil, err
	}
	return takes, nil
}

// SelectTake marks a take as the one used for playout. The backend clears
// the previous selection for the same break.
func (c *Client) SelectTake(ctx context.Context, takeID int64) error {
	endpoint := fmt.Sprintf("%s/voice/takes/%d/select", c.baseURL, takeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build select take request: %w", err)
	}
	c.authorize(req)
	return c.do(req, nil, "select take")
}

// DeleteTake removes a take.
func (c *Client) DeleteTake(ctx context.Context, takeID int64) error {
	endpoint := fmt.Sprintf("%s/voice/%d", c.baseURL, takeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build delete take request: %w", err)
	}
	c.authorize(req)
	return c.do(req, nil, "delete take")
}

// PushToLibreTime pushes a finalized recording into the playout library.
func (c *Client) PushToLibreTime(ctx context.Context, takeID int64) error {
	endpoint := fmt.Sprintf("%s/voice/%d/upload-to-libretime", c.baseURL, takeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build libretime push request: %w", err)
	}
	c.authorize(req)
	return c.do(req, nil, "libretime push")
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) do(req *http.Request, out any, operation string) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrUploadFailed, "traffic", operation, req.URL.Path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "traffic", operation, req.URL.Path, nil)
	case resp.StatusCode >= http.StatusMultipleChoices:
		detail := readErrorBody(resp.Body)
		return services.Wrap(services.ErrUploadFailed, "traffic", operation,
			fmt.Sprintf("%s returned %d: %s", req.URL.Path, resp.StatusCode, detail), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrUploadFailed, "traffic", operation, "decode response", err)
	}
	return nil
}

func multipartAudio(filename string, wav []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(wav); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
