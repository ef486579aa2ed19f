// Package config provides configuration management for the async-transport
// service.
//
// Configuration is loaded from environment variables using the env package.
// All configuration values have sensible defaults for development use;
// without REDIS_ADDR the service runs on in-memory adapters.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("HTTP server will listen on %s\n", cfg.GetHTTPAddr())
package config
