// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	HTTP HTTPServer `yaml:"http"`

	ValKey  ValKey  `yaml:"valkey"`
	Gateway Gateway `yaml:"gateway"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

type ValKey struct {
	Host      commoncfg.SourceRef `yaml:"host"`
	User      commoncfg.SourceRef `yaml:"user"`
	Password  commoncfg.SourceRef `yaml:"password"`
	SecretRef commoncfg.SecretRef `yaml:"secretRef"`
	Prefix    string              `yaml:"prefix"`
}

// Gateway configures the authorization-code flow against the identity
// provider and the cookies the flow relies on.
type Gateway struct {
	// BasePath is the mount point of the login, accept, and logout endpoints.
	BasePath string `yaml:"basePath" default:"/auth"`

	// Authority is the identity provider base URL. The tenant segment is
	// appended per request.
	Authority string `yaml:"authority" default:"https://login.microsoftonline.com"`

	ClientID     commoncfg.SourceRef `yaml:"clientID"`
	ClientSecret commoncfg.SourceRef `yaml:"clientSecret"`

	// TenantID is the fallback tenant when neither the x-tenant header nor
	// the tenant cookie pins one. "common" means no specific tenant.
	TenantID string `yaml:"tenantID" default:"common"`

	// Resources are the external resource ids tokens are acquired for.
	Resources []string `yaml:"resources"`

	// LandingPath is the post-login redirect target when no original URL
	// was recorded.
	LandingPath string `yaml:"landingPath" default:"/"`

	SessionDuration time.Duration `yaml:"sessionDuration" default:"12h"`
	ExchangeTimeout time.Duration `yaml:"exchangeTimeout" default:"10s"`
	SecretCacheTTL  time.Duration `yaml:"secretCacheTTL" default:"5m"`

	Cookies Cookies `yaml:"cookies"`
}

type Cookies struct {
	SessionID CookieTemplate `yaml:"sessionID"`
	Nonce     CookieTemplate `yaml:"nonce"`
	Resource  CookieTemplate `yaml:"resource"`
	Redirect  CookieTemplate `yaml:"redirect"`
	Tenant    CookieTemplate `yaml:"tenant"`

	// EntryKey carries the attributes of the per-entry encryption-key
	// cookies. The name is derived from the cache key per entry.
	EntryKey CookieTemplate `yaml:"entryKey"`
}
