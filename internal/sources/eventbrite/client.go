package eventbrite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/engarde-app/signup-sync/pkg/logging"
)

const (
	defaultBaseURL = "https://www.eventbriteapi.com/v3"
	defaultTimeout = 20 * time.Second

	// Attendee timestamps are UTC ISO-8601 without an offset.
	timestampLayout = "2006-01-02T15:04:05Z"
)

// Client wraps the Eventbrite REST API (v3) with private-token auth.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
	logger     *logging.Logger
}

// NewClient constructs an Eventbrite REST client.
func NewClient(baseURL, apiToken string, logger *logging.Logger) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiToken:   apiToken,
		logger:     logger,
	}
}

// ListAttendees pages through attendees of one event changed at or after
// since, using the server-side changed_since filter and continuation
// cursors.
func (c *Client) ListAttendees(ctx context.Context, eventID string, since time.Time) ([]Attendee, error) {
	var out []Attendee
	continuation := ""
	for {
		q := url.Values{}
		if !since.IsZero() {
			q.Set("changed_since", since.UTC().Format(timestampLayout))
		}
		if continuation != "" {
			q.Set("continuation", continuation)
		}
		path := fmt.Sprintf("/events/%s/attendees/?%s", url.PathEscape(eventID), q.Encode())

		var page attendeesPage
		if err := c.doJSON(ctx, path, &page); err != nil {
			return nil, fmt.Errorf("list attendees for event %s: %w", eventID, err)
		}
		out = append(out, page.Attendees...)

		if !page.Pagination.HasMoreItems || page.Pagination.Continuation == "" {
			return out, nil
		}
		continuation = page.Pagination.Continuation
	}
}

func (c *Client) doJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

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
		c.logger.Warn("eventbrite API non-2xx response", "status", resp.StatusCode, "path", path, "body", msg)
		return fmt.Errorf("eventbrite API returned %d: %s", resp.StatusCode, msg)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
