package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"duckse/internal/config"
	"duckse/internal/provider"
	"duckse/internal/resolve"
	"duckse/internal/transport"
	"duckse/search"
)

// openProvider is replaced in tests.
var openProvider = func(opts transport.Options) search.Opener {
	return provider.Opener(opts)
}

func transportOptions(cfg *config.Config) transport.Options {
	return transport.Options{
		Proxy:     cfg.Proxy,
		Timeout:   cfg.Timeout,
		Verify:    cfg.Verify,
		UserAgent: cfg.UserAgent,
	}
}

// runPipeline normalizes and validates req, runs the search and optionally
// resolves result links. It returns the request as actually sent.
func runPipeline(ctx context.Context, cfg *config.Config, req search.Request, expand bool) (search.Request, []search.Result, error) {
	log := zerolog.Ctx(ctx)
	prepared, err := search.NewNormalizer(cfg.RewriteRules).Prepare(req)
	if err != nil {
		return req, nil, err
	}
	if prepared.Query != req.Query || prepared.Category != req.Category {
		log.Info().Str("query", prepared.Query).Str("type", string(prepared.Category)).
			Str("region", prepared.Region).Str("timelimit", string(prepared.TimeFilter)).Msg("query rewritten")
	}

	opts := transportOptions(cfg)
	results, err := search.Run(ctx, openProvider(opts), prepared)
	if err != nil {
		return prepared, nil, fmt.Errorf("search failed: %w", err)
	}
	log.Debug().Int("results", len(results)).Msg("search done")

	if expand && len(results) > 0 {
		opts.Timeout = 0
		client, err := transport.NewClient(opts)
		if err != nil {
			return prepared, nil, err
		}
		defer transport.CloseIdle(client)
		results = resolve.New(client, cfg.ExpandTimeout).Expand(ctx, results)
	}
	return prepared, results, nil
}

var errNoQuery = errors.New("a search query is required")

// stdinIsTerminal and askQuery are replaced in tests.
var (
	stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	askQuery        = func() (string, error) {
		var q string
		prompt := &survey.Input{Message: "Search:"}
		err := survey.AskOne(prompt, &q, survey.WithValidator(survey.Required), survey.WithStdio(os.Stdin, os.Stderr, os.Stderr))
		return q, err
	}
)

func promptQuery() (string, error) {
	if !stdinIsTerminal() {
		return "", errNoQuery
	}
	q, err := askQuery()
	if err != nil {
		return "", fmt.Errorf("read query: %w", err)
	}
	if q = strings.TrimSpace(q); q == "" {
		return "", errNoQuery
	}
	return q, nil
}
