package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"mercator-hq/arbiter/pkg/config"
)

// NewServerConfig returns the listener TLS configuration for cfg. The
// certificate is taken from reloader, which must have loaded successfully.
func NewServerConfig(cfg config.TLSConfig, reloader *CertificateReloader) (*tls.Config, error) {
	if reloader.GetCertificate() == nil {
		return nil, fmt.Errorf("no server certificate loaded")
	}

	// #nosec G402 - MinVersion is 1.2 or 1.3, enforced by config validation
	tlsConfig := &tls.Config{
		MinVersion:     minVersion(cfg.MinVersion),
		GetCertificate: reloader.GetCertificateFunc(),
	}

	if cfg.ClientCAFile != "" {
		pool, err := loadCertPool(cfg.ClientCAFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return tlsConfig, nil
}

func minVersion(v string) uint16 {
	if v == "1.2" {
		return tls.VersionTLS12
	}
	return tls.VersionTLS13
}

func loadCertPool(path string) (*x509.CertPool, error) {
	// #nosec G304 - path comes from operator configuration
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in client CA file %s", path)
	}
	return pool, nil
}
