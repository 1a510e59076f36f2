// Package idp talks to the external identity provider's token endpoint.
package idp

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

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"

	slogctx "github.com/veqryn/slog-context"

	"github.com/certhub/session-gateway/internal/tokencache"
)

// Exchanger acquires token records from the identity provider, either by
// redeeming an authorization code or by redeeming a refresh token.
type Exchanger interface {
	AcquireByCode(ctx context.Context, tenantID, resourceID, code, redirectURI string) (tokencache.TokenRecord, error)
	AcquireByRefresh(ctx context.Context, tenantID string, current tokencache.TokenRecord) (tokencache.TokenRecord, error)
}

type Client struct {
	authority  *url.URL
	clientID   string
	secrets    SecretProvider
	httpClient *http.Client
}

var _ Exchanger = (*Client)(nil)

// NewClient builds a token-endpoint client. All exchanges are bounded by
// the given timeout; no retries are attempted at this layer.
func NewClient(authority, clientID string, secrets SecretProvider, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(authority)
	if err != nil {
		return nil, fmt.Errorf("parsing authority URL: %w", err)
	}

	return &Client{
		authority:  u,
		clientID:   clientID,
		secrets:    secrets,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) AcquireByCode(ctx context.Context, tenantID, resourceID, code, redirectURI string) (tokencache.TokenRecord, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", redirectURI)
	data.Set("resource", resourceID)

	return c.exchange(ctx, tenantID, resourceID, data)
}

func (c *Client) AcquireByRefresh(ctx context.Context, tenantID string, current tokencache.TokenRecord) (tokencache.TokenRecord, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", current.RefreshToken)
	data.Set("resource", current.Resource)

	return c.exchange(ctx, tenantID, current.Resource, data)
}

// tokenResponse is the provider's token endpoint payload. Numeric fields
// arrive as decimal strings.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	ExpiresIn    string `json:"expires_in"`
	ExpiresOn    string `json:"expires_on"`
	Resource     string `json:"resource"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (c *Client) exchange(ctx context.Context, tenantID, resourceID string, data url.Values) (tokencache.TokenRecord, error) {
	secret, err := c.secrets.ClientSecret(ctx)
	if err != nil {
		return tokencache.TokenRecord{}, fmt.Errorf("loading client secret: %w", err)
	}

	data.Set("client_id", c.clientID)
	data.Set("client_secret", secret)

	endpoint := c.authority.JoinPath(tenantID, "oauth2", "token").String()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return tokencache.TokenRecord{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return tokencache.TokenRecord{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return tokencache.TokenRecord{}, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return tokencache.TokenRecord{}, fmt.Errorf("token endpoint rejected the grant: %s", errResp.Error)
		}

		return tokencache.TokenRecord{}, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tokens tokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return tokencache.TokenRecord{}, fmt.Errorf("decoding response: %w", err)
	}

	if tokens.AccessToken == "" {
		return tokencache.TokenRecord{}, fmt.Errorf("token endpoint returned no access token")
	}

	return c.buildRecord(ctx, tenantID, resourceID, tokens), nil
}

func (c *Client) buildRecord(ctx context.Context, tenantID, resourceID string, tokens tokenResponse) tokencache.TokenRecord {
	record := tokencache.TokenRecord{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresOn:    parseExpiry(tokens),
		Resource:     tokens.Resource,
		TenantID:     tenantID,
	}
	if record.Resource == "" {
		record.Resource = resourceID
	}

	claims, err := parseIDToken(tokens.IDToken)
	if err != nil {
		// the record stays usable without claims
		slogctx.Warn(ctx, "Failed to parse id token claims", "error", err)
		return record
	}

	if claims.TenantID != "" {
		record.TenantID = claims.TenantID
	}
	record.UserID = claims.userID()
	record.GivenName = claims.GivenName
	record.FamilyName = claims.FamilyName
	record.ObjectID = claims.ObjectID

	return record
}

func parseExpiry(tokens tokenResponse) time.Time {
	if unix, err := strconv.ParseInt(tokens.ExpiresOn, 10, 64); err == nil {
		return time.Unix(unix, 0)
	}

	if seconds, err := strconv.ParseInt(tokens.ExpiresIn, 10, 64); err == nil {
		return time.Now().Add(time.Duration(seconds) * time.Second)
	}

	// an unparsable expiry reads as already expired, forcing a refresh
	return time.Time{}
}

type idTokenClaims struct {
	TenantID   string `json:"tid"`
	ObjectID   string `json:"oid"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	UPN        string `json:"upn"`
	UniqueName string `json:"unique_name"`
	Email      string `json:"email"`
}

func (c idTokenClaims) userID() string {
	for _, candidate := range []string{c.UPN, c.UniqueName, c.Email, c.ObjectID} {
		if candidate != "" {
			return candidate
		}
	}

	return ""
}

// parseIDToken reads the claims without verifying the signature. The token
// arrives over the direct server-to-server channel with the provider, not
// through the browser.
func parseIDToken(raw string) (idTokenClaims, error) {
	if raw == "" {
		return idTokenClaims{}, fmt.Errorf("no id token in response")
	}

	token, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.RS256, jose.RS384, jose.RS512})
	if err != nil {
		return idTokenClaims{}, fmt.Errorf("parsing id token: %w", err)
	}

	var claims idTokenClaims
	if err := token.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return idTokenClaims{}, fmt.Errorf("reading id token claims: %w", err)
	}

	return claims, nil
}
