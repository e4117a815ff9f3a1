package auth

import "time"

type Admin struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Claims is the verified content of a signed token. It exists only inside
// the token artifact; nothing is persisted server-side.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	Kind      string
}
