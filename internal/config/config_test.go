package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func setRequired(t *testing.T) {
	t.Setenv("WOOCOMMERCE_BASE_URL", "https://shop.example")
	t.Setenv("WOOCOMMERCE_CONSUMER_KEY", "ck")
	t.Setenv("WOOCOMMERCE_CONSUMER_SECRET", "cs")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("", quietLogger())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.HttpServer.Port)
	assert.Equal(t, "9090", cfg.GrpcServer.Port)
	assert.Equal(t, "/login", cfg.AuthLoginPath)
	assert.Equal(t, 15*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Identity.RefreshInterval)
	assert.Equal(t, 10, cfg.Catalog.TopCategories)
	assert.Equal(t, "storefront-events", cfg.Kafka.EventsTopic)
	assert.Empty(t, cfg.Kafka.SeedBrokers)
	assert.Equal(t, "storefront_session", cfg.Session.CookieName)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, 10000, cfg.Session.MaxCarts)
	assert.False(t, cfg.Postgres.Enabled())
}

func TestLoad_MissingWooCommerceCredentials(t *testing.T) {
	t.Setenv("WOOCOMMERCE_BASE_URL", "https://shop.example")

	_, err := Load("", quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WOOCOMMERCE_CONSUMER_KEY")
}

func TestLoad_EnvFileAndLists(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "WOOCOMMERCE_BASE_URL=https://shop.example\n" +
		"WOOCOMMERCE_CONSUMER_KEY=ck\n" +
		"WOOCOMMERCE_CONSUMER_SECRET=cs\n" +
		"KAFKA_SEED_BROKERS=kafka-1:9092,kafka-2:9092\n" +
		"POSTGRES_HOST=db\n" +
		"POSTGRES_USER=shop\n" +
		"POSTGRES_PASSWORD=p@ss\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))
	for _, k := range []string{
		"WOOCOMMERCE_BASE_URL", "WOOCOMMERCE_CONSUMER_KEY", "WOOCOMMERCE_CONSUMER_SECRET",
		"KAFKA_SEED_BROKERS", "POSTGRES_HOST", "POSTGRES_USER", "POSTGRES_PASSWORD",
	} {
		// Register cleanup, then unset so godotenv (which never overrides) can fill them in.
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load(envFile, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.SeedBrokers)
	assert.True(t, cfg.Postgres.Enabled())
	assert.Equal(t, "host=db port=5432 user=shop password=p@ss dbname=storefront sslmode=disable", cfg.Postgres.DSN())
	assert.Equal(t, "postgres://shop:p%40ss@db:5432/storefront?sslmode=disable", cfg.Postgres.URL())
}

func TestLoad_PostgresHostWithoutUser(t *testing.T) {
	setRequired(t)
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_USER", "")

	_, err := Load("", quietLogger())
	assert.Error(t, err)
}

func TestNewLogger_Level(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, NewLogger("debug").GetLevel())
	assert.Equal(t, logrus.InfoLevel, NewLogger("chatty").GetLevel())
}

func TestLoadPostgres(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "secret")

	pc, err := LoadPostgres("", quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:secret@db:5432/storefront?sslmode=disable", pc.URL())
}

func TestLoadPostgres_NoHost(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "")

	_, err := LoadPostgres("", quietLogger())
	assert.Error(t, err)
}
