package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestParse(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := Parse([]byte(`
server:
  http_port: 8080
storage:
  type: memory
jwt:
  secret: ` + secret + `
`))
		require.NoError(t, err)

		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "text", cfg.Log.Format)
		assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout())
		assert.Equal(t, time.Hour, cfg.AccessTokenTTL())
		assert.Equal(t, 5*time.Second, cfg.LockTTL())
		assert.Equal(t, 2*time.Second, cfg.LockWait())
		assert.Equal(t, []string{ChannelLog}, cfg.Notify.Channels)
		assert.Equal(t, "rental_events", cfg.Notify.AMQPQueue)
		assert.Equal(t, "0 */15 * * * *", cfg.Scheduler.ReconcileAvailability)
		assert.NotEmpty(t, cfg.Scheduler.ReportFlaggedPricing)
		assert.Equal(t, ":8080", cfg.GetHTTPAddress())
	})

	t.Run("Postgres", func(t *testing.T) {
		cfg, err := Parse([]byte(`
server:
  host: 0.0.0.0
  http_port: 8080
  grpc_port: 9090
database:
  host: db
  user: app
  password: pw
  database: backcar
jwt:
  secret: ` + secret + `
pricing:
  override_tolerance_percent: 2.5
  enforce_tolerance: true
`))
		require.NoError(t, err)

		assert.Equal(t, StoragePostgres, cfg.Storage.Type)
		assert.Equal(t, "postgres://app:pw@db:5432/backcar?sslmode=disable", cfg.GetDatabaseConnectionString())
		assert.Equal(t, "0.0.0.0:9090", cfg.GetGRPCAddress())
		assert.Equal(t, 2.5, cfg.Pricing.OverrideTolerancePercent)
		assert.True(t, cfg.Pricing.EnforceTolerance)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("STORAGE_TYPE", "memory")
		t.Setenv("JWT_SECRET", secret)
		t.Setenv("HTTP_PORT", "9999")
		t.Setenv("REDIS_ADDR", "redis:6379")
		t.Setenv("NOTIFY_CHANNELS", "log, inbox")
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := Parse([]byte(`
server:
  http_port: 8080
`))
		require.NoError(t, err)
		assert.Equal(t, StorageMemory, cfg.Storage.Type)
		assert.Equal(t, 9999, cfg.Server.HTTPPort)
		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, "redis:6379", cfg.Redis.Addr)
		assert.Equal(t, []string{ChannelLog, ChannelInbox}, cfg.Notify.Channels)
		assert.True(t, cfg.Notify.Enabled(ChannelInbox))
		assert.False(t, cfg.Notify.Enabled(ChannelEmail))
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("Invalid", func(t *testing.T) {
		cases := map[string]string{
			"port":         "server: {http_port: 0}\nstorage: {type: memory}\njwt: {secret: " + secret + "}",
			"short secret": "server: {http_port: 80}\nstorage: {type: memory}\njwt: {secret: short}",
			"no db host":   "server: {http_port: 80}\njwt: {secret: " + secret + "}",
			"storage":      "server: {http_port: 80}\nstorage: {type: s3}\njwt: {secret: " + secret + "}",
			"channel":      "server: {http_port: 80}\nstorage: {type: memory}\njwt: {secret: " + secret + "}\nnotify: {channels: [sms]}",
			"amqp url":     "server: {http_port: 80}\nstorage: {type: memory}\njwt: {secret: " + secret + "}\nnotify: {channels: [amqp]}",
			"email creds":  "server: {http_port: 80}\nstorage: {type: memory}\njwt: {secret: " + secret + "}\nnotify: {channels: [email]}",
			"push creds":   "server: {http_port: 80}\nstorage: {type: memory}\njwt: {secret: " + secret + "}\nnotify: {channels: [push]}",
			"redis addr":   "server: {http_port: 80}\nstorage: {type: memory}\njwt: {secret: " + secret + "}\nredis: {enabled: true}",
			"tolerance":    "server: {http_port: 80}\nstorage: {type: memory}\njwt: {secret: " + secret + "}\npricing: {override_tolerance_percent: -1}",
			"bad yaml":     "server: [",
		}
		for name, doc := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := Parse([]byte(doc))
				assert.Error(t, err)
			})
		}
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: {http_port: 8081}\nstorage: {type: memory}\njwt: {secret: "+secret+"}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.HTTPPort)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestGetSecurityLevel(t *testing.T) {
	assert.Equal(t, SecurityPublic, GetSecurityLevel("Health/Live"))
	assert.Equal(t, SecurityCustomer, GetSecurityLevel("RentalService/CreateBooking"))
	assert.Equal(t, SecurityShop, GetSecurityLevel("PaymentService/VerifyPayment"))
	assert.Equal(t, SecurityAccess, GetSecurityLevel("Unknown/Route"))
}
