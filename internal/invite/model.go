package invite

import "time"

type Code struct {
	ID        string    `json:"-"`
	Code      string    `json:"code"`
	FirstName *string   `json:"first_name"`
	LastName  *string   `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	MaxCalls  int       `json:"max_calls"`
	CallCount int       `json:"call_count"`
	IsValid   bool      `json:"is_valid"`
}

// Valid reports whether the code can still be redeemed at the given
// instant: not yet expired and under its call budget.
func (c Code) Valid(now time.Time) bool {
	return now.Before(c.ExpiresAt) && c.CallCount < c.MaxCalls
}

type CodeInput struct {
	Code      string  `json:"code"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	ExpiresIn int     `json:"expires_in_days"`
	MaxCalls  int     `json:"max_calls"`
}
