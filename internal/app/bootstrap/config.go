// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for RosterHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, identity_jwt_key, etc.
//   - Environment variables: ROSTERHUB_MONGO_URI, ROSTERHUB_IDENTITY_JWT_KEY, etc.
//   - Command-line flags: --mongo_uri, --identity_jwt_key, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "rosterhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Identity provider
	{Name: "identity_jwt_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Shared key for verifying identity-provider tokens (must be strong in production)"},
	{Name: "identity_issuer", Default: "rosterhub-identity", Desc: "Expected issuer of identity-provider tokens"},

	// Notification pub/sub
	{Name: "redis_addr", Default: "", Desc: "Redis address for homework notification events (blank disables publishing)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},

	// Operation timeout tiers (Go duration strings; blank keeps defaults)
	{Name: "timeout_ping", Default: "", Desc: "Timeout for health-check pings (e.g. 2s)"},
	{Name: "timeout_short", Default: "", Desc: "Timeout for single-document reads (e.g. 5s)"},
	{Name: "timeout_medium", Default: "", Desc: "Timeout for list queries and moderate writes (e.g. 10s)"},
	{Name: "timeout_long", Default: "", Desc: "Timeout for reconciliation passes and cascade deletes (e.g. 30s)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, ROSTERHUB_* for app), and
// command-line flags, merging with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "ROSTERHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		IdentityJWTKey: appValues.String("identity_jwt_key"),
		IdentityIssuer: appValues.String("identity_issuer"),

		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
	}

	for _, tier := range []struct {
		key string
		dst *time.Duration
	}{
		{"timeout_ping", &appCfg.TimeoutPing},
		{"timeout_short", &appCfg.TimeoutShort},
		{"timeout_medium", &appCfg.TimeoutMedium},
		{"timeout_long", &appCfg.TimeoutLong},
	} {
		raw := appValues.String(tier.key)
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, AppConfig{}, fmt.Errorf("invalid %s %q: %w", tier.key, raw, err)
		}
		*tier.dst = d
	}
	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation, aborting startup on
// error. The MongoDB URI is checked here to catch configuration mistakes
// before any connection attempt.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if coreCfg.Env == "prod" && appCfg.IdentityJWTKey == "dev-only-change-me-please-0123456789ABCDEF" {
		return fmt.Errorf("identity_jwt_key must be changed from the dev default in production")
	}
	return nil
}
