package config // package config loads application configuration from environment variables

import (
	"log"  // log reports a malformed .env file
	"time" // time is used for the shutdown timeout

	"github.com/joho/godotenv" // godotenv loads a local .env file into the environment
)

// Config holds the process-wide settings.  Every value has a default so the
// service starts with an empty environment, which is how the CI pipeline
// runs it.
type Config struct {
	Env             string        // application environment (e.g. "dev", "prod")
	Port            string        // HTTP port to listen on
	LogLevel        string        // debug | info | warn | error
	LegacyRoutes    bool          // also serve "/" and "/api/test"
	ShutdownTimeout time.Duration // grace period for in-flight requests on stop
}

// Load reads a .env file if one exists and then builds a Config from the
// environment.  Variables already set in the environment win over .env.
func Load() Config {
	if err := godotenv.Load(); err != nil && !isNotExist(err) {
		log.Printf("config: ignoring .env: %v", err)
	}
	return Config{
		Env:             envStr("APP_ENV", "dev"),
		Port:            envStr("APP_PORT", "8080"),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		LegacyRoutes:    envBool("LEGACY_ROUTES_ENABLED", true),
		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}
