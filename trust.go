package main

import (
	"crypto/x509"
	"fmt"
	"os"
)

// loadCABundle reads a PEM bundle into a pool for https sessions. An empty
// path returns nil, which makes sessions use the system roots.
func loadCABundle(path string) (*x509.CertPool, error) {
	if path == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading CA bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}
