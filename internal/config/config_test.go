package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CATAI_BACKEND", "")
	t.Setenv("POLL_INTERVAL_MS", "")

	cfg := Load()
	assert.Equal(t, BackendMock, cfg.Backend)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, UnknownToolReport, cfg.UnknownToolPolicy)
	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CATAI_BACKEND", "gateway")
	t.Setenv("POLL_INTERVAL_MS", "50")
	t.Setenv("MAX_IMAGES", "not-a-number")

	cfg := Load()
	assert.Equal(t, BackendGateway, cfg.Backend)
	assert.Equal(t, 50*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 10, cfg.MaxImages)
}

func TestApplyFileOverlaysValues(t *testing.T) {
	t.Setenv("TEST_CAT_KEY", "secret")
	path := filepath.Join(t.TempDir(), "catai.yaml")
	content := "backend: openai\nopenai_api_key: sk-test\ncat_api_key: ${TEST_CAT_KEY}\npoll_interval_ms: 250\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := Load()
	cfg.GatewayURL = "http://keep"
	require.NoError(t, cfg.ApplyFile(path))

	assert.Equal(t, BackendOpenAI, cfg.Backend)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, "secret", cfg.CatAPIKey)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "http://keep", cfg.GatewayURL)
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Load()
	cfg.Backend = "carrier-pigeon"
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.Backend = BackendOpenAI
	cfg.OpenAIAPIKey = ""
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.UnknownToolPolicy = "explode"
	assert.Error(t, cfg.Validate())
}
