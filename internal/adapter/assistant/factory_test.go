package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0ngyang/catai/internal/adapter/gateway"
	"github.com/s0ngyang/catai/internal/adapter/mockassistant"
	"github.com/s0ngyang/catai/internal/adapter/oaiassistant"
	"github.com/s0ngyang/catai/internal/config"
	"github.com/s0ngyang/catai/internal/logging"
)

func TestNewSelectsBackend(t *testing.T) {
	cfg := config.Load()

	cfg.Backend = config.BackendMock
	cfg.DatabaseURL = ":memory:"
	client, closeFn, err := New(cfg, logging.Discard())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &mockassistant.Service{}, client)

	threadID, err := client.CreateThread(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, threadID)

	cfg.Backend = config.BackendOpenAI
	client, _, err = New(cfg, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &oaiassistant.Client{}, client)

	cfg.Backend = config.BackendGateway
	client, _, err = New(cfg, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &gateway.Client{}, client)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := config.Load()
	cfg.Backend = "carrier-pigeon"

	_, closeFn, err := New(cfg, logging.Discard())
	assert.ErrorContains(t, err, "unknown backend")
	assert.NoError(t, closeFn())
}
