package poshvip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/engarde-app/signup-sync/pkg/logging"
)

const (
	defaultBaseURL = "https://posh.vip"
	defaultTimeout = 15 * time.Second
)

// Config is the funnel source configuration for a Posh.VIP organizer
// account.
type Config struct {
	APIKey string `json:"api_key"`

	// Endpoint override for non-production environments.
	BaseURL string `json:"base_url,omitempty"`
}

// Contact is one entry of the contacts export.
type Contact struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	City      string `json:"city"`
	State     string `json:"state"`
	UpdatedAt string `json:"updated_at"`
}

type contactsPage struct {
	Contacts []Contact `json:"contacts"`
	HasMore  bool      `json:"has_more"`
}

// Client wraps the Posh.VIP contacts export API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logging.Logger
}

// NewClient constructs a Posh.VIP REST client.
func NewClient(baseURL, apiKey string, logger *logging.Logger) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger,
	}
}

// ListContacts pages through contacts updated at or after since.
func (c *Client) ListContacts(ctx context.Context, since time.Time) ([]Contact, error) {
	var out []Contact
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		if !since.IsZero() {
			q.Set("updated_since", since.UTC().Format(time.RFC3339))
		}

		var batch contactsPage
		if err := c.doJSON(ctx, "/api/v1/contacts?"+q.Encode(), &batch); err != nil {
			return nil, fmt.Errorf("list contacts: %w", err)
		}
		out = append(out, batch.Contacts...)

		if !batch.HasMore {
			return out, nil
		}
	}
}

func (c *Client) doJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		c.logger.Warn("poshvip API non-2xx response", "status", resp.StatusCode, "path", path, "body", msg)
		return fmt.Errorf("poshvip API returned %d: %s", resp.StatusCode, msg)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
