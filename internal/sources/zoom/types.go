package zoom

// Config is the funnel source configuration for a Zoom server-to-server
// OAuth app.
type Config struct {
	AccountID    string   `json:"account_id"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	WebinarIDs   []string `json:"webinar_ids"`

	// Endpoint overrides for non-production environments.
	APIBaseURL  string `json:"api_base_url,omitempty"`
	AuthBaseURL string `json:"auth_base_url,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Registrant is one webinar registrant.
type Registrant struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Org        string `json:"org"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	CreateTime string `json:"create_time"`
}

type registrantsPage struct {
	Registrants   []Registrant `json:"registrants"`
	NextPageToken string       `json:"next_page_token"`
	TotalRecords  int          `json:"total_records"`
}
