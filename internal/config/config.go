package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	RateCacheTTLSeconds   int
	AuthSecret            string
	AccessTokenTTLMinutes int
	ManagerPIN            string
	SaleGSTPercent        decimal.Decimal
	PurchaseGSTPercent    decimal.Decimal
	BarcodeDebounceMS     int
}

var defaults = map[string]any{
	"PORT":                     "8080",
	"ALLOWED_ORIGIN":           "http://127.0.0.1:3000",
	"REDIS_DB":                 0,
	"RATE_CACHE_TTL_SECONDS":   300,
	"ACCESS_TOKEN_TTL_MINUTES": 480,
	"SALE_GST_PERCENT":         "3",
	"PURCHASE_GST_PERCENT":     "18",
	"BARCODE_DEBOUNCE_MS":      300,
}

// Load reads configuration from the environment, with an optional .env file
// in the working directory underneath it.
func Load() Config {
	return load(".env")
}

func load(envFile string) Config {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range []string{"DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "AUTH_SECRET", "MANAGER_PIN"} {
		_ = v.BindEnv(key)
	}

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				log.Printf("[config] WARN: ignoring %s: %v", envFile, err)
			}
		}
	}
	v.AutomaticEnv()

	return Config{
		Port:                  v.GetString("PORT"),
		AllowedOrigin:         v.GetString("ALLOWED_ORIGIN"),
		DatabaseURL:           strings.TrimSpace(v.GetString("DATABASE_URL")),
		RedisAddr:             strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		RedisDB:               v.GetInt("REDIS_DB"),
		RateCacheTTLSeconds:   positiveInt(v, "RATE_CACHE_TTL_SECONDS"),
		AuthSecret:            strings.TrimSpace(v.GetString("AUTH_SECRET")),
		AccessTokenTTLMinutes: positiveInt(v, "ACCESS_TOKEN_TTL_MINUTES"),
		ManagerPIN:            strings.TrimSpace(v.GetString("MANAGER_PIN")),
		SaleGSTPercent:        percent(v, "SALE_GST_PERCENT"),
		PurchaseGSTPercent:    percent(v, "PURCHASE_GST_PERCENT"),
		BarcodeDebounceMS:     nonNegativeInt(v, "BARCODE_DEBOUNCE_MS"),
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) RateCacheTTL() time.Duration {
	return time.Duration(c.RateCacheTTLSeconds) * time.Second
}

func (c Config) BarcodeDebounce() time.Duration {
	return time.Duration(c.BarcodeDebounceMS) * time.Millisecond
}

func positiveInt(v *viper.Viper, key string) int {
	n := v.GetInt(key)
	if n < 1 {
		return defaults[key].(int)
	}
	return n
}

func nonNegativeInt(v *viper.Viper, key string) int {
	n := v.GetInt(key)
	if n < 0 {
		return defaults[key].(int)
	}
	return n
}

func percent(v *viper.Viper, key string) decimal.Decimal {
	fallback := decimal.RequireFromString(defaults[key].(string))
	d, err := decimal.NewFromString(strings.TrimSpace(v.GetString(key)))
	if err != nil || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return fallback
	}
	return d
}
