package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rudransh-shrivastava/peer-assist/internal/transport"
)

const defaultHTTPTimeout = 10 * time.Second

// StatusError is a non-2xx relay response.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("relay %s: status %d", e.Op, e.Code)
}

// Client talks to the relay over HTTP and implements transport.Signaler.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) PublishOffer(ctx context.Context, desc transport.Description) error {
	return c.publish(ctx, "/offer", desc)
}

func (c *Client) PublishAnswer(ctx context.Context, desc transport.Description) error {
	return c.publish(ctx, "/answer", desc)
}

func (c *Client) TakeOffer(ctx context.Context) (transport.Description, error) {
	return c.take(ctx, "/get_offer")
}

func (c *Client) TakeAnswer(ctx context.Context) (transport.Description, error) {
	return c.take(ctx, "/get_answer")
}

// Health checks the relay's /test route.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/test", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach relay: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: "health", Code: resp.StatusCode}
	}
	return nil
}

func (c *Client) publish(ctx context.Context, path string, desc transport.Description) error {
	form := url.Values{}
	form.Set("id", desc.ID)
	form.Set("type", string(desc.Type))
	form.Set("sdp", desc.SDP)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post %s: %w", path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: "POST " + path, Code: resp.StatusCode}
	}
	return nil
}

func (c *Client) take(ctx context.Context, path string) (transport.Description, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return transport.Description{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transport.Description{}, fmt.Errorf("failed to get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		_, _ = io.Copy(io.Discard, resp.Body)
		return transport.Description{}, fmt.Errorf("GET %s: %w", path, transport.ErrNotPresent)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return transport.Description{}, &StatusError{Op: "GET " + path, Code: resp.StatusCode}
	}

	var desc transport.Description
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return transport.Description{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return desc, nil
}
