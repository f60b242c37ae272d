package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App      AppConfig
	DB       DBConfig
	JWT      JWTConfig
	HTTP     HTTPConfig
	Redis    RedisConfig
	Checkout CheckoutConfig
	Client   ClientConfig
	Seed     SeedConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// Enabled indica si hay una base de datos configurada. Sin ella se usa el backend en memoria.
func (c DBConfig) Enabled() bool {
	return c.DatabaseURL != "" || c.Host != ""
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos (un turno de caja)
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig configuración del candado de finalización. Addr vacío = candado en memoria del proceso.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CheckoutConfig parámetros del flujo de venta.
type CheckoutConfig struct {
	FinalizeLockTTL time.Duration
}

// ClientConfig parámetros del cliente de caja (cmd/pos).
// Sin POS_TOKEN el cliente inicia sesión con POS_EMAIL y POS_PASSWORD.
type ClientConfig struct {
	BaseURL        string
	Token          string
	BranchID       string
	Email          string
	Password       string
	RequestTimeout time.Duration
	ReadRetries    int
}

// SeedConfig contraseñas de los usuarios demo del backend en memoria (solo desarrollo).
type SeedConfig struct {
	AdminPassword   string
	CashierPassword string
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, JWT_SECRET, REDIS_ADDR, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "ventas-api"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", ""),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "ventas"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 480),
			Issuer:     getString(v, "JWT_ISSUER", "ventas-api"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", ""),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
		Checkout: CheckoutConfig{
			FinalizeLockTTL: time.Duration(getInt(v, "CHECKOUT_FINALIZE_LOCK_SECONDS", 30)) * time.Second,
		},
		Client: ClientConfig{
			BaseURL:        getString(v, "POS_API_URL", "http://localhost:8080"),
			Token:          getString(v, "POS_TOKEN", ""),
			BranchID:       getString(v, "POS_BRANCH_ID", ""),
			Email:          getString(v, "POS_EMAIL", ""),
			Password:       getString(v, "POS_PASSWORD", ""),
			ReadRetries:    getInt(v, "POS_READ_RETRIES", 3),
			RequestTimeout: time.Duration(getInt(v, "POS_REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Seed: SeedConfig{
			AdminPassword:   getString(v, "SEED_ADMIN_PASSWORD", "admin123"),
			CashierPassword: getString(v, "SEED_CASHIER_PASSWORD", "cajero123"),
		},
	}

	if cfg.App.Env == "production" && cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET es obligatorio en production")
	}
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = devJWTSecret
	}
	if cfg.Checkout.FinalizeLockTTL <= 0 {
		return nil, fmt.Errorf("config: CHECKOUT_FINALIZE_LOCK_SECONDS debe ser positivo")
	}
	return cfg, nil
}

const devJWTSecret = "ventas-dev-secret"

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if !v.IsSet(key) {
		return def
	}
	switch v.Get(key).(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			return def
		}
		return n
	default:
		return v.GetInt(key)
	}
}
