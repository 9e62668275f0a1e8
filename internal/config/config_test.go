package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("CART_STORE", "")
	t.Setenv("FREE_SHIPPING_THRESHOLD", "")

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.CartStore)
	assert.True(t, cfg.FreeShippingThreshold.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, 60*time.Second, cfg.Mpesa.SafetyMargin)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("CART_STORE", "Mongo")
	t.Setenv("CORS_ORIGINS", "https://gamecity.co.ke, https://admin.gamecity.co.ke,")
	t.Setenv("SHIPPING_FLAT_RATE", "250.50")
	t.Setenv("TOKEN_TTL_SECONDS", "3600")
	t.Setenv("MPESA_BASE_URL", "https://api.safaricom.co.ke/")

	cfg := FromEnv()

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "mongo", cfg.CartStore)
	assert.Equal(t, []string{"https://gamecity.co.ke", "https://admin.gamecity.co.ke"}, cfg.CORSOrigins)
	assert.Equal(t, "250.5", cfg.ShippingFlatRate.String())
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, "https://api.safaricom.co.ke", cfg.Mpesa.BaseURL)
}

func TestFromEnv_BadNumbersFallBack(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "soon")
	t.Setenv("FREE_SHIPPING_THRESHOLD", "lots")

	cfg := FromEnv()

	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.FreeShippingThreshold.Equal(decimal.NewFromInt(5000)))
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MONGO_DB=from_file\n"), 0o600))
	t.Setenv("MONGO_DB", "")
	require.NoError(t, os.Unsetenv("MONGO_DB"))

	cfg := Load(path)

	assert.Equal(t, "from_file", cfg.MongoDB)
	require.NoError(t, os.Unsetenv("MONGO_DB"))
}
