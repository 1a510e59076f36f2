// Package valkeytest starts a throwaway ValKey container for repository
// tests.
package valkeytest

import (
	"context"
	"fmt"
	"net"

	"github.com/docker/go-connections/nat"
	"github.com/valkey-io/valkey-go"

	valkeycontainer "github.com/testcontainers/testcontainers-go/modules/valkey"
	slogctx "github.com/veqryn/slog-context"
)

// Start initialises a ValKey instance and returns a connected client and a
// termination function.
func Start(ctx context.Context) (valkey.Client, func(ctx context.Context), error) {
	valkeyContainer, err := valkeycontainer.Run(ctx, "valkey/valkey:8-alpine")
	if err != nil {
		return nil, nil, fmt.Errorf("starting ValKey container: %w", err)
	}

	terminate := func(ctx context.Context) {
		if err := valkeyContainer.Terminate(ctx); err != nil {
			slogctx.Error(ctx, "Failed to terminate ValKey container", "error", err)
		}
	}

	port, err := valkeyContainer.MappedPort(ctx, nat.Port("6379"))
	if err != nil {
		terminate(ctx)
		return nil, nil, fmt.Errorf("mapping ValKey container port: %w", err)
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{net.JoinHostPort("localhost", port.Port())},
	})
	if err != nil {
		terminate(ctx)
		return nil, nil, fmt.Errorf("initialising ValKey client: %w", err)
	}

	return client, terminate, nil
}
