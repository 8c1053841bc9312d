package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitNoopWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "arns-replay"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, shutdown(ctx))
}

func TestInitRequiresServiceName(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Endpoint: "192.0.2.1:4318"})
	require.ErrorContains(t, err, "service name")
	require.NotNil(t, shutdown)
}

func TestInitCreatesProvider(t *testing.T) {
	// Non-routable collector; nothing is exported before shutdown.
	shutdown, err := Init(context.Background(), Config{
		ServiceName: "arns-replay",
		Environment: "test",
		Endpoint:    "192.0.2.1:4318",
		Insecure:    true,
		Headers:     map[string]string{"x-api-key": "secret"},
	})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders(" x-api-key = secret ,broken, =empty,tenant=arns")
	require.Equal(t, map[string]string{"x-api-key": "secret", "tenant": "arns"}, headers)
}
