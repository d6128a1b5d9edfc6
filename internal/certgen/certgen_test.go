package certgen

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeAuthority(t *testing.T) (*Authority, string, string) {
	t.Helper()
	ca, pair, err := NewAuthority("Test CA", time.Hour)
	if err != nil {
		t.Fatalf("NewAuthority: %v", err)
	}
	dir := t.TempDir()
	certPath, keyPath := filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key")
	if err := pair.Write(certPath, keyPath); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return ca, certPath, keyPath
}

func TestLoadAuthority_RoundTrip(t *testing.T) {
	ca, certPath, keyPath := writeAuthority(t)

	got, err := LoadAuthority(certPath, keyPath)
	if err != nil {
		t.Fatalf("LoadAuthority: %v", err)
	}
	if !got.Cert.Equal(ca.Cert) {
		t.Error("loaded certificate differs")
	}
	if !got.Key.Equal(ca.Key) {
		t.Error("loaded key differs")
	}

	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("key mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestLoadAuthority_Errors(t *testing.T) {
	_, certPath, keyPath := writeAuthority(t)
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pem")
	if err := os.WriteFile(garbage, []byte("not pem"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		cert     string
		key      string
		wantPart string
	}{
		{"missing cert", filepath.Join(dir, "none.crt"), keyPath, "read ca cert"},
		{"missing key", certPath, filepath.Join(dir, "none.key"), "read ca key"},
		{"bad cert", garbage, keyPath, "invalid CA cert PEM"},
		{"bad key", certPath, garbage, "invalid CA key PEM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadAuthority(tt.cert, tt.key)
			if err == nil || !strings.Contains(err.Error(), tt.wantPart) {
				t.Fatalf("error = %v, want it to contain %q", err, tt.wantPart)
			}
		})
	}
}

func TestIssueServer_VerifiesAgainstCA(t *testing.T) {
	ca, certPath, _ := writeAuthority(t)

	pair, err := ca.IssueServer([]string{"localhost", "127.0.0.1"}, time.Hour)
	if err != nil {
		t.Fatalf("IssueServer: %v", err)
	}
	if _, err := tls.X509KeyPair(pair.CertPEM, pair.KeyPEM); err != nil {
		t.Fatalf("pair does not load: %v", err)
	}

	block, _ := pem.Decode(pair.CertPEM)
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatal(err)
	}
	if len(cert.DNSNames) != 1 || cert.DNSNames[0] != "localhost" {
		t.Errorf("DNSNames = %v", cert.DNSNames)
	}
	if len(cert.IPAddresses) != 1 || !cert.IPAddresses[0].Equal(net.ParseIP("127.0.0.1")) {
		t.Errorf("IPAddresses = %v", cert.IPAddresses)
	}

	pool, err := CertPool(certPath)
	if err != nil {
		t.Fatalf("CertPool: %v", err)
	}
	for _, host := range []string{"localhost", "127.0.0.1"} {
		_, err := cert.Verify(x509.VerifyOptions{
			DNSName:   host,
			Roots:     pool,
			KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		})
		if err != nil {
			t.Errorf("Verify(%s): %v", host, err)
		}
	}
}

func TestIssueServer_NoHosts(t *testing.T) {
	ca, _, _ := writeAuthority(t)
	if _, err := ca.IssueServer(nil, time.Hour); err == nil {
		t.Error("IssueServer(nil) = nil error")
	}
}

func TestCertPool_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pem")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := CertPool(path); err == nil {
		t.Error("CertPool on empty file = nil error")
	}
}
