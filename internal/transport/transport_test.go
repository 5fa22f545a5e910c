package transport

import (
	"context"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseVerify(t *testing.T) {
	dir := t.TempDir()
	bundle := filepath.Join(dir, "ca.pem")
	if err := os.WriteFile(bundle, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		in   string
		want Verify
	}{
		{"", Verify{Enabled: true}},
		{"true", Verify{Enabled: true}},
		{"false", Verify{Enabled: false}},
		{bundle, Verify{Enabled: true, CAFile: bundle}},
	}
	for _, tt := range tests {
		got, err := ParseVerify(tt.in)
		if err != nil {
			t.Fatalf("ParseVerify(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseVerify(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseVerify(filepath.Join(dir, "missing.pem")); err == nil {
		t.Fatalf("expected error for a missing bundle")
	}
}

func TestExpandProxy(t *testing.T) {
	u, err := ExpandProxy("tb")
	if err != nil || u.String() != TorProxy {
		t.Fatalf("tb alias: %v %v", u, err)
	}
	if u, err := ExpandProxy(""); u != nil || err != nil {
		t.Fatalf("empty proxy should be nil, got %v %v", u, err)
	}
	if _, err := ExpandProxy("ftp://host:21"); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}
	if _, err := ExpandProxy("socks5://"); err == nil {
		t.Fatalf("expected missing host error")
	}
}

func TestClientTrustsCustomBundle(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "duckse-test" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	bundle := filepath.Join(t.TempDir(), "ca.pem")
	block := &pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw}
	if err := os.WriteFile(bundle, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatal(err)
	}

	get := func(opts Options) error {
		c, err := NewClient(opts)
		if err != nil {
			return err
		}
		defer CloseIdle(c)
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
		resp, err := c.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	}

	if err := get(Options{Timeout: 5 * time.Second, UserAgent: "duckse-test"}); err == nil {
		t.Fatalf("system roots should not trust the test server")
	}
	if err := get(Options{Timeout: 5 * time.Second, UserAgent: "duckse-test", Verify: bundle}); err != nil {
		t.Fatalf("custom bundle: %v", err)
	}
	if err := get(Options{Timeout: 5 * time.Second, UserAgent: "duckse-test", Verify: "false"}); err != nil {
		t.Fatalf("verify=false: %v", err)
	}
}
