package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"
)

// DefaultUserAgent is sent when no other agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// TorProxy is what the "tb" proxy shortcut expands to (Tor Browser's socks port).
const TorProxy = "socks5h://127.0.0.1:9150"

// Options configures the shared outbound HTTP client.
type Options struct {
	Proxy     string
	Timeout   time.Duration
	Verify    string
	UserAgent string
}

// Verify is the parsed form of the --verify flag: either a boolean or the
// path of a PEM bundle with the CAs to trust.
type Verify struct {
	Enabled bool
	CAFile  string
}

func ParseVerify(s string) (Verify, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Verify{Enabled: true}, nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return Verify{Enabled: b}, nil
	}
	if _, err := os.Stat(s); err != nil {
		return Verify{}, fmt.Errorf("verify: %q is neither true/false nor a readable certificate bundle: %w", s, err)
	}
	return Verify{Enabled: true, CAFile: s}, nil
}

// TLSConfig returns nil when the system defaults apply.
func (v Verify) TLSConfig() (*tls.Config, error) {
	if !v.Enabled {
		return &tls.Config{InsecureSkipVerify: true}, nil //nolint:gosec // explicitly requested with --verify=false
	}
	if v.CAFile == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(v.CAFile)
	if err != nil {
		return nil, fmt.Errorf("read CA bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", v.CAFile)
	}
	return &tls.Config{RootCAs: pool}, nil
}

// ExpandProxy applies the "tb" shortcut and returns the parsed URL, or nil
// when no proxy is configured.
func ExpandProxy(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if raw == "tb" {
		raw = TorProxy
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse proxy %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q (use http, https, socks5 or socks5h)", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxy %q has no host", raw)
	}
	return u, nil
}

// NewTransport builds the round tripper shared by every engine.
func NewTransport(opts Options) (*http.Transport, error) {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("unexpected default transport %T", http.DefaultTransport)
	}
	t := base.Clone()

	verify, err := ParseVerify(opts.Verify)
	if err != nil {
		return nil, err
	}
	tlsConf, err := verify.TLSConfig()
	if err != nil {
		return nil, err
	}
	if tlsConf != nil {
		t.TLSClientConfig = tlsConf
	}

	pu, err := ExpandProxy(opts.Proxy)
	if err != nil {
		return nil, err
	}
	if pu != nil {
		switch pu.Scheme {
		case "http", "https":
			t.Proxy = http.ProxyURL(pu)
		default:
			d, err := proxy.FromURL(pu, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("socks proxy: %w", err)
			}
			t.Proxy = nil
			if cd, ok := d.(proxy.ContextDialer); ok {
				t.DialContext = cd.DialContext
			} else {
				t.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
					return d.Dial(network, addr)
				}
			}
		}
	}
	return t, nil
}

// NewClient returns an http.Client with a cookie jar, the configured user
// agent, and opts.Timeout as its per-request limit.
func NewClient(opts Options) (*http.Client, error) {
	t, err := NewTransport(opts)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &http.Client{
		Transport: &loggingRoundTripper{rt: t, userAgent: ua},
		Jar:       jar,
		Timeout:   opts.Timeout,
	}, nil
}

// CloseIdle releases pooled connections held by c.
func CloseIdle(c *http.Client) {
	if c != nil {
		c.CloseIdleConnections()
	}
}

// loggingRoundTripper sets the user agent and logs every status code at
// debug level.
type loggingRoundTripper struct {
	rt        *http.Transport
	userAgent string
}

func (l *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", l.userAgent)
	}
	start := time.Now()
	resp, err := l.rt.RoundTrip(req)
	log := zerolog.Ctx(req.Context())
	if err != nil {
		log.Debug().Err(err).Str("method", req.Method).Stringer("url", req.URL).Msg("http request failed")
		return nil, err
	}
	log.Debug().Str("method", req.Method).Stringer("url", req.URL).Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).Msg("http")
	return resp, nil
}

// CloseIdleConnections lets http.Client.CloseIdleConnections reach the
// wrapped transport.
func (l *loggingRoundTripper) CloseIdleConnections() {
	l.rt.CloseIdleConnections()
}
