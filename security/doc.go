// Package security builds TLS settings for outbound connections, such as a
// self-hosted transcription sidecar behind a private CA or mutual TLS.
//
//	cfg := security.TLSConfig{CAFile: "/etc/transcriber/ca.pem", MinVersion: "1.3"}
//	tlsConfig, err := cfg.ClientConfig()
package security
