package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// LoadTLSConfig builds the client *tls.Config used for secure heads.
// If cfg is nil or all paths are empty it returns (nil, nil), meaning the
// system roots apply. A client certificate is only sent when both
// NodeCert and NodeKey are set.
func LoadTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	if cfg == nil || (cfg.CACert == "" && cfg.NodeCert == "" && cfg.NodeKey == "") {
		return nil, nil
	}

	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.NodeCert != "" || cfg.NodeKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.NodeCert, cfg.NodeKey)
		if err != nil {
			return nil, fmt.Errorf("load node cert/key: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	if cfg.CACert != "" {
		caPEM, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsCfg.RootCAs = caPool
	}
	return tlsCfg, nil
}
