package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_ValoresPorDefecto(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.False(t, cfg.DB.Enabled(), "sin DATABASE_URL ni DB_HOST se usa el backend en memoria")
	assert.Equal(t, 30*time.Second, cfg.Checkout.FinalizeLockTTL)
	assert.Equal(t, 480, cfg.JWT.Expiration)
}

func TestFromViper_EnteroComoString(t *testing.T) {
	v := viper.New()
	v.Set("HTTP_PORT", "9090")
	v.Set("REDIS_DB", "x")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 0, cfg.Redis.DB, "un entero inválido cae al valor por defecto")
}

func TestFromViper_ProductionSinSecretFalla(t *testing.T) {
	v := viper.New()
	v.Set("APP_ENV", "production")

	_, err := fromViper(v)
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "pos", Password: "p@ss/word", DBName: "ventas", SSLMode: "disable"}
	assert.True(t, c.Enabled())
	assert.Equal(t, "postgres://pos:p%40ss%2Fword@db:5432/ventas?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}

func TestFromViper_SecretDeDesarrollo(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)
	assert.Equal(t, devJWTSecret, cfg.JWT.Secret)
	assert.Equal(t, "admin123", cfg.Seed.AdminPassword)
}
