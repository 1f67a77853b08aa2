package security

import (
	"crypto/tls"
	"testing"

	"github.com/kbukum/runkit/security/tlstest"
)

func TestTLSConfig_DisabledBuildsNil(t *testing.T) {
	for name, cfg := range map[string]*TLSConfig{
		"nil":  nil,
		"zero": {},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := cfg.Build()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != nil {
				t.Fatal("expected nil tls.Config")
			}
		})
	}
}

func TestTLSConfig_EnabledOnly(t *testing.T) {
	cfg := &TLSConfig{Enabled: true}
	got, err := cfg.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a tls.Config")
	}
	if got.MinVersion != tls.VersionTLS12 {
		t.Errorf("expected TLS 1.2 minimum, got %d", got.MinVersion)
	}
	if got.RootCAs != nil {
		t.Error("expected the system pool")
	}
}

func TestTLSConfig_Full(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	cfg := &TLSConfig{
		CAFile:     certs.CAFile,
		CertFile:   certs.CertFile,
		KeyFile:    certs.KeyFile,
		ServerName: "localhost",
		MinVersion: "1.3",
	}

	got, err := cfg.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RootCAs == nil {
		t.Error("expected RootCAs")
	}
	if len(got.Certificates) != 1 {
		t.Errorf("expected 1 client certificate, got %d", len(got.Certificates))
	}
	if got.ServerName != "localhost" {
		t.Errorf("unexpected server name %q", got.ServerName)
	}
	if got.MinVersion != tls.VersionTLS13 {
		t.Errorf("expected TLS 1.3 minimum, got %d", got.MinVersion)
	}
}

func TestTLSConfig_Errors(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	tests := []struct {
		name string
		cfg  TLSConfig
	}{
		{"cert without key", TLSConfig{CertFile: certs.CertFile}},
		{"key without cert", TLSConfig{Enabled: true, KeyFile: certs.KeyFile}},
		{"bad min version", TLSConfig{Enabled: true, MinVersion: "1.1"}},
		{"missing CA file", TLSConfig{CAFile: "/nonexistent/ca.pem"}},
		{"invalid CA content", TLSConfig{CAFile: tlstest.WriteInvalidPEM(t, "ca.pem")}},
		{"missing cert files", TLSConfig{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.cfg.Build(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestServerTLSConfig_Build(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)

	var off *ServerTLSConfig
	if got, err := off.Build(); err != nil || got != nil {
		t.Fatalf("expected nil config for nil settings, got %v, %v", got, err)
	}

	cfg := &ServerTLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile}
	got, err := cfg.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Certificates) != 1 {
		t.Fatalf("expected the server certificate, got %d", len(got.Certificates))
	}
	if got.ClientAuth != tls.NoClientCert {
		t.Errorf("expected no client auth, got %v", got.ClientAuth)
	}

	cfg.ClientCAFile = certs.CAFile
	got, err = cfg.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ClientAuth != tls.RequireAndVerifyClientCert || got.ClientCAs == nil {
		t.Error("expected mutual TLS")
	}
}

func TestServerTLSConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServerTLSConfig
		wantErr bool
	}{
		{"off", ServerTLSConfig{}, false},
		{"cert and key", ServerTLSConfig{CertFile: "c", KeyFile: "k"}, false},
		{"cert only", ServerTLSConfig{CertFile: "c"}, true},
		{"client CA without cert", ServerTLSConfig{ClientCAFile: "ca"}, true},
		{"bad min version", ServerTLSConfig{CertFile: "c", KeyFile: "k", MinVersion: "tls13"}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected an error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
