// Package tokencache maps (tenant, resource) pairs to cached token records
// for one browser session, stored through the split-key crypto store.
package tokencache

import "time"

// TokenRecord is a cached token for one (tenant, resource) pair. Records
// are immutable once issued and replaced wholesale on refresh or re-login.
type TokenRecord struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresOn    time.Time `json:"expiresOn"`
	Resource     string    `json:"resource"`
	TenantID     string    `json:"tenantId"`

	UserID     string `json:"userId"`
	GivenName  string `json:"givenName,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
	ObjectID   string `json:"oid,omitempty"`
}

func (r TokenRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresOn)
}
