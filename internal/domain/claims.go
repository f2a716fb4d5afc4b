package domain

import "time"

// Claims are the assertions carried by an issued token. Extra holds
// application-defined claims beyond the required set.
type Claims struct {
	ClientID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Issuer    string
	Extra     map[string]any
}
