package zoom

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
	defaultAPIBaseURL  = "https://api.zoom.us/v2"
	defaultAuthBaseURL = "https://zoom.us"
	defaultTimeout     = 20 * time.Second
	pageSize           = 300
)

// Client wraps the Zoom REST API using server-to-server OAuth
// (account_credentials grant). A token is minted lazily on the first API
// call and reused for the client's lifetime, which is one sync run.
type Client struct {
	httpClient *http.Client
	apiBase    string
	authBase   string
	cfg        Config
	logger     *logging.Logger

	accessToken string
}

// NewClient constructs a Zoom client for one source configuration.
func NewClient(cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	apiBase := cfg.APIBaseURL
	if strings.TrimSpace(apiBase) == "" {
		apiBase = defaultAPIBaseURL
	}
	authBase := cfg.AuthBaseURL
	if strings.TrimSpace(authBase) == "" {
		authBase = defaultAuthBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		apiBase:    strings.TrimRight(apiBase, "/"),
		authBase:   strings.TrimRight(authBase, "/"),
		cfg:        cfg,
		logger:     logger,
	}
}

// ListRegistrants pages through all registrants of one webinar. The endpoint
// has no server-side date filter; callers cut off by CreateTime.
func (c *Client) ListRegistrants(ctx context.Context, webinarID string) ([]Registrant, error) {
	var out []Registrant
	nextPageToken := ""
	for {
		q := url.Values{}
		q.Set("page_size", fmt.Sprint(pageSize))
		if nextPageToken != "" {
			q.Set("next_page_token", nextPageToken)
		}
		path := fmt.Sprintf("/webinars/%s/registrants?%s", url.PathEscape(webinarID), q.Encode())

		var page registrantsPage
		if err := c.doJSON(ctx, path, &page); err != nil {
			return nil, fmt.Errorf("list registrants for webinar %s: %w", webinarID, err)
		}
		out = append(out, page.Registrants...)

		if page.NextPageToken == "" {
			return out, nil
		}
		nextPageToken = page.NextPageToken
	}
}

func (c *Client) doJSON(ctx context.Context, path string, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

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
		c.logger.Warn("zoom API non-2xx response", "status", resp.StatusCode, "path", path, "body", msg)
		return fmt.Errorf("zoom API returned %d: %s", resp.StatusCode, msg)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// token mints a server-to-server OAuth access token on first use.
func (c *Client) token(ctx context.Context) (string, error) {
	if c.accessToken != "" {
		return c.accessToken, nil
	}

	q := url.Values{}
	q.Set("grant_type", "account_credentials")
	q.Set("account_id", c.cfg.AccountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authBase+"/oauth/token?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return "", fmt.Errorf("zoom oauth returned %d: %s", resp.StatusCode, msg)
	}

	var token tokenResponse
	if err := json.Unmarshal(respBody, &token); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("zoom oauth returned empty access token")
	}

	c.accessToken = token.AccessToken
	return c.accessToken, nil
}
