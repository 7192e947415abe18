package eventbrite

// Config is the funnel source configuration for an Eventbrite organizer
// account.
type Config struct {
	APIToken string   `json:"api_token"`
	EventIDs []string `json:"event_ids"`

	// Endpoint override for non-production environments.
	BaseURL string `json:"base_url,omitempty"`
}

// Attendee is one attendee of an event.
type Attendee struct {
	ID      string  `json:"id"`
	Created string  `json:"created"`
	Status  string  `json:"status"`
	Profile Profile `json:"profile"`
}

type Profile struct {
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	CompanyName string     `json:"company"`
	CellPhone   string     `json:"cell_phone"`
	Addresses   *Addresses `json:"addresses"`
}

type Addresses struct {
	Home *Address `json:"home"`
	Work *Address `json:"work"`
}

type Address struct {
	Address1 string `json:"address_1"`
	City     string `json:"city"`
	Region   string `json:"region"`
}

type attendeesPage struct {
	Attendees  []Attendee `json:"attendees"`
	Pagination pagination `json:"pagination"`
}

type pagination struct {
	HasMoreItems bool   `json:"has_more_items"`
	Continuation string `json:"continuation"`
}
