package server

import (
	"net/http"

	"github.com/certhub/session-gateway/internal/config"
)

func pingHandler(cfg *config.Config) http.Handler {
	return observe(cfg, "ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		_, _ = w.Write([]byte(`{ "result": "ping" }`))
	}))
}
