// Package config loads runkit configuration with Viper.
//
// LoadConfig reads a YAML file (runkit.yml or config.yml in the working
// directory, ./config or ./cmd/runkit), then a .env file through godotenv,
// then the process environment. Environment variables use the RUNKIT_
// prefix with underscore-separated paths:
//
//	RUNKIT_LOGGING_LEVEL=debug
//	RUNKIT_CHAINS_DIRS=chains,more-chains
//	RUNKIT_CACHE_REDIS_ADDR=redis:6379
//
// Load applies defaults and validates the result.
package config
