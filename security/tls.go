package security

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// TLSConfig is the client side TLS section of an upstream: which roots to
// trust and, for mutual TLS, which certificate to present.
type TLSConfig struct {
	SkipVerify bool   `yaml:"skip_verify" mapstructure:"skip_verify"`
	CAFile     string `yaml:"ca_file" mapstructure:"ca_file"`
	CertFile   string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile    string `yaml:"key_file" mapstructure:"key_file"`
	// ServerName replaces the host name checked against the certificate.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`
	// MinVersion is "1.2" or "1.3"; empty means 1.2.
	MinVersion string `yaml:"min_version" mapstructure:"min_version"`
}

func minVersion(v string) (uint16, bool) {
	switch v {
	case "", "1.2":
		return tls.VersionTLS12, true
	case "1.3":
		return tls.VersionTLS13, true
	}
	return 0, false
}

// IsEnabled is false for a nil or all-default section.
func (c *TLSConfig) IsEnabled() bool {
	return c != nil && *c != (TLSConfig{KeyFile: c.KeyFile})
}

// Validate checks the settings agree with each other. Files are not read.
func (c *TLSConfig) Validate() error {
	switch {
	case c == nil:
		return nil
	case (c.CertFile == "") != (c.KeyFile == ""):
		return errors.New("tls: cert_file and key_file must be set together")
	}
	if _, ok := minVersion(c.MinVersion); !ok {
		return fmt.Errorf("tls: min_version %q is not 1.2 or 1.3", c.MinVersion)
	}
	return nil
}

// ClientConfig loads the files and builds the transport's *tls.Config.
// Nil, nil means keep the transport defaults.
func (c *TLSConfig) ClientConfig() (*tls.Config, error) {
	if !c.IsEnabled() {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	version, _ := minVersion(c.MinVersion)
	out := &tls.Config{
		InsecureSkipVerify: c.SkipVerify, //nolint:gosec // opt-in for test sidecars
		ServerName:         c.ServerName,
		MinVersion:         version,
	}
	var err error
	if out.RootCAs, err = c.roots(); err != nil {
		return nil, err
	}
	if c.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("tls: load client certificate: %w", err)
		}
		out.Certificates = append(out.Certificates, cert)
	}
	return out, nil
}

// roots is the CA pool from CAFile, or nil for the system roots.
func (c *TLSConfig) roots() (*x509.CertPool, error) {
	if c.CAFile == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("tls: read ca_file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("tls: no certificate found in %s", c.CAFile)
	}
	return pool, nil
}
