package business

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"

	"github.com/certhub/session-gateway/internal/authflow"
	"github.com/certhub/session-gateway/internal/business/server"
	"github.com/certhub/session-gateway/internal/config"
	"github.com/certhub/session-gateway/internal/cryptostore"
	"github.com/certhub/session-gateway/internal/idp"
	"github.com/certhub/session-gateway/internal/nonce"
	"github.com/certhub/session-gateway/internal/sessionstore"
	sessionvalkey "github.com/certhub/session-gateway/internal/sessionstore/valkey"
	"github.com/certhub/session-gateway/internal/tokencache"
)

// Main starts the public HTTP API server.
func Main(ctx context.Context, cfg *config.Config) error {
	flow, sessions, closeFn, err := initFlow(cfg)
	if err != nil {
		return fmt.Errorf("initialising the authorization flow: %w", err)
	}

	defer closeFn()

	return server.StartHTTPServer(ctx, cfg, flow, sessions)
}

// initFlow wires the session store, the token cache, and the identity
// provider client into the flow controller and the session middleware.
func initFlow(cfg *config.Config) (_ *authflow.Flow, _ func(http.Handler) http.Handler, closeFn func(), _ error) {
	valkeyClient, err := newValKeyClient(cfg.ValKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	sessionRepo := sessionvalkey.NewRepository(valkeyClient, cfg.ValKey.Prefix, cfg.Gateway.SessionDuration)
	cache := tokencache.New(cryptostore.New(cfg.Gateway.Cookies.EntryKey))

	clientID, err := commoncfg.LoadValueFromSourceRef(cfg.Gateway.ClientID)
	if err != nil {
		valkeyClient.Close()
		return nil, nil, nil, fmt.Errorf("loading client id: %w", err)
	}

	secrets := idp.NewCachedSecrets(
		idp.NewSourceRefSecrets(cfg.Gateway.ClientSecret),
		cfg.Gateway.SecretCacheTTL,
	)

	exchanger, err := idp.NewClient(cfg.Gateway.Authority, string(clientID), secrets, cfg.Gateway.ExchangeTimeout)
	if err != nil {
		valkeyClient.Close()
		return nil, nil, nil, fmt.Errorf("creating the identity provider client: %w", err)
	}

	flow := authflow.New(cfg.Gateway, string(clientID), cache, exchanger)
	sessions := sessionstore.Middleware(sessionRepo, cfg.Gateway.Cookies.SessionID, nonce.Source{}.SessionID)

	return flow, sessions, valkeyClient.Close, nil
}

func newValKeyClient(cfg config.ValKey) (valkey.Client, error) {
	host, err := commoncfg.LoadValueFromSourceRef(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("loading valkey host: %w", err)
	}

	username, err := commoncfg.LoadValueFromSourceRef(cfg.User)
	if err != nil {
		return nil, fmt.Errorf("loading valkey username: %w", err)
	}

	password, err := commoncfg.LoadValueFromSourceRef(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("loading valkey password: %w", err)
	}

	opts := valkey.ClientOption{
		InitAddress: []string{string(host)},
		Username:    string(username),
		Password:    string(password),
	}

	if cfg.SecretRef.Type == commoncfg.MTLSSecretType {
		tlsConfig, err := commoncfg.LoadMTLSConfig(&cfg.SecretRef.MTLS)
		if err != nil {
			return nil, fmt.Errorf("loading valkey mTLS config from secret ref: %w", err)
		}

		opts.TLSConfig = tlsConfig
	}

	return valkey.NewClient(opts)
}
