package certs

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"testing"
)

// TestEnsurePair tests generation, validity and reuse of the pair
func TestEnsurePair(t *testing.T) {
	dir := t.TempDir()

	certPath, keyPath, err := EnsurePair(dir)
	if err != nil {
		t.Fatalf("EnsurePair failed: %v", err)
	}

	// The pair must be loadable for serving.
	if _, err := tls.LoadX509KeyPair(certPath, keyPath); err != nil {
		t.Fatalf("Generated pair does not load: %v", err)
	}

	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		t.Fatalf("read cert: %v", err)
	}
	block, _ := pem.Decode(certPEM)
	if block == nil {
		t.Fatal("Expected PEM certificate")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("parse cert: %v", err)
	}
	if cert.Subject.CommonName != "localhost" {
		t.Errorf("Expected CN localhost, got %s", cert.Subject.CommonName)
	}
	if len(cert.DNSNames) == 0 || cert.DNSNames[0] != "localhost" {
		t.Errorf("Expected localhost SAN, got %v", cert.DNSNames)
	}
	if len(cert.IPAddresses) == 0 || cert.IPAddresses[0].String() != "127.0.0.1" {
		t.Errorf("Expected 127.0.0.1 SAN, got %v", cert.IPAddresses)
	}

	// A second call must reuse the files, not regenerate.
	certPath2, keyPath2, err := EnsurePair(dir)
	if err != nil {
		t.Fatalf("Second EnsurePair failed: %v", err)
	}
	if certPath2 != certPath || keyPath2 != keyPath {
		t.Error("Expected the same paths on reuse")
	}
	certPEM2, _ := os.ReadFile(certPath2)
	if string(certPEM2) != string(certPEM) {
		t.Error("Expected certificate to be reused, not regenerated")
	}
}
