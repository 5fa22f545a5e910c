// Package resolve follows result links to their final destination.
package resolve

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"duckse/search"
)

// DefaultTimeout bounds a single resolution request.
const DefaultTimeout = 6 * time.Second

// Resolver adds a resolved_url field to results whose link redirects
// somewhere else.
type Resolver struct {
	Client  *http.Client
	Timeout time.Duration

	// Final returns the URL raw ends up at. Defaults to a GET that follows
	// redirects.
	Final func(ctx context.Context, raw string) (string, error)
}

func New(client *http.Client, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{Client: client, Timeout: timeout}
}

// Expand resolves every result in order. Failures are logged and leave the
// result untouched.
func (r *Resolver) Expand(ctx context.Context, results []search.Result) []search.Result {
	log := zerolog.Ctx(ctx)
	for i := range results {
		raw, ok := results[i].Link()
		if !ok {
			continue
		}
		final, err := r.resolveOne(ctx, raw)
		if err != nil {
			log.Debug().Err(err).Str("url", raw).Msg("resolve failed")
			continue
		}
		u, err := url.Parse(final)
		if err != nil || u.Scheme == "" || u.Host == "" || final == raw {
			continue
		}
		results[i].Set("resolved_url", final)
	}
	return results
}

func (r *Resolver) resolveOne(ctx context.Context, raw string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if r.Final != nil {
		return r.Final(ctx, raw)
	}
	return r.follow(ctx, raw)
}

func (r *Resolver) follow(ctx context.Context, raw string) (string, error) {
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.Request.URL.String(), nil
}
