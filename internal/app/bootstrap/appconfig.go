// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (ports, TLS, logging,
// CORS, body limits); AppConfig is everything specific to RosterHub.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Identity provider token verification. RosterHub never authenticates
	// anyone itself; it verifies tokens the provider signed.
	IdentityJWTKey string // shared HS256 key
	IdentityIssuer string // expected iss claim

	// Redis pub/sub for homework notification events. Blank disables
	// publishing (the Nop notifier is used instead).
	RedisAddr     string
	RedisPassword string

	// Operation timeout tiers applied around store calls in handlers.
	// Zero values keep the package defaults.
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
