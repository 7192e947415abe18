package easyappointments

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
	defaultTimeout = 15 * time.Second
	pageSize       = 100

	// Book/start datetimes come back in the server's local time without a
	// zone marker.
	datetimeLayout = "2006-01-02 15:04:05"
)

// Client wraps the Easy!Appointments REST API (v1) with bearer API-key
// auth.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logging.Logger
}

// NewClient constructs an Easy!Appointments REST client.
func NewClient(baseURL, apiKey string, logger *logging.Logger) *Client {
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

// ListAppointments pages through appointments booked at or after since,
// oldest first, with customer and service aggregates expanded. The API has
// no server-side date filter so the cutoff is applied here.
func (c *Client) ListAppointments(ctx context.Context, since time.Time) ([]Appointment, error) {
	var out []Appointment
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("aggregates", "")
		q.Set("sort", "+book")
		q.Set("page", strconv.Itoa(page))
		q.Set("length", strconv.Itoa(pageSize))

		var batch []Appointment
		if err := c.doJSON(ctx, "/index.php/api/v1/appointments?"+q.Encode(), &batch); err != nil {
			return nil, fmt.Errorf("list appointments: %w", err)
		}

		for _, apt := range batch {
			booked, err := time.Parse(datetimeLayout, apt.Book)
			if err != nil {
				c.logger.Warn("skipping appointment with unparseable book time",
					"appointment_id", apt.ID, "book", apt.Book)
				continue
			}
			if booked.Before(since) {
				continue
			}
			out = append(out, apt)
		}

		if len(batch) < pageSize {
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
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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
		c.logger.Warn("easyappointments API non-2xx response", "status", resp.StatusCode, "path", path, "body", msg)
		return fmt.Errorf("easyappointments API returned %d: %s", resp.StatusCode, msg)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
