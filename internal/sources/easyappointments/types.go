package easyappointments

// Config is the funnel source configuration for an Easy!Appointments
// deployment.
type Config struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
}

// Appointment is one row of the appointments endpoint with the customer and
// service aggregates expanded.
type Appointment struct {
	ID    int    `json:"id"`
	Book  string `json:"book"`
	Start string `json:"start"`
	End   string `json:"end"`
	Notes string `json:"notes"`

	Customer *Customer `json:"customer"`
	Service  *Service  `json:"service"`
}

type Customer struct {
	ID        int    `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
}

type Service struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Price    *float64 `json:"price"`
	Duration int      `json:"duration"`
	Currency string   `json:"currency"`
}
