// Package security holds the TLS settings shared by runkit's transports:
// the client side used to reach the Redis cache and the server side used
// by the HTTP server.
//
//	cfg := security.ServerTLSConfig{
//	    CertFile: "/path/to/cert.pem",
//	    KeyFile:  "/path/to/key.pem",
//	}
//
//	tlsConfig, err := cfg.Build() // nil when TLS is off
package security
