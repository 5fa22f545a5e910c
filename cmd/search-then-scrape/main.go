// Command search-then-scrape runs a duckse search and scrapes the top result
// pages with Firecrawl.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"duckse/internal/chain"
	"duckse/internal/config"
	"duckse/internal/firecrawl"
	"duckse/internal/logging"
	"duckse/internal/transport"
)

var (
	opts       chain.Options
	jsonOutput bool
	delay      time.Duration
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "search-then-scrape [flags] <query...>",
	Short:         "Search with duckse, then scrape the result pages with Firecrawl",
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&opts.Type, "type", "text", "duckse search type: text or news")
	f.IntVar(&opts.MaxResults, "max-results", 10, "number of duckse results")
	f.IntVar(&opts.ScrapeLimit, "scrape-limit", 5, "maximum URLs to scrape")
	f.StringVar(&opts.Region, "region", "us-en", "duckse region")
	f.StringVar(&opts.TimeLimit, "timelimit", "", "duckse time filter: d, w, m or y")
	f.StringVar(&opts.Backend, "backend", "auto", "duckse backend")
	f.StringVar(&opts.Binary, "duckse", "duckse", "path to the duckse binary")
	f.BoolVar(&opts.Markdown, "markdown", true, "include markdown")
	f.BoolVar(&opts.HTML, "html", false, "include html")
	f.BoolVar(&opts.Screenshot, "screenshot", false, "include a screenshot")
	f.BoolVar(&jsonOutput, "json", false, "print the raw JSON report")
	f.DurationVar(&delay, "delay", 0, "minimum interval between scrapes")
	f.StringVar(&configPath, "config", "", "duckse config file")
	f.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func run(cmd *cobra.Command, args []string) error {
	opts.Query = strings.Join(args, " ")
	switch opts.Type {
	case "text", "news":
	default:
		return fmt.Errorf("invalid type %q (choose from text, news)", opts.Type)
	}
	switch opts.TimeLimit {
	case "", "d", "w", "m", "y":
	default:
		return fmt.Errorf("invalid timelimit %q (choose from d, w, m, y)", opts.TimeLimit)
	}

	cfg, err := config.NewLoader().Load(configPath)
	if err != nil {
		return err
	}
	log, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, Verbose: verbose})
	if err != nil {
		return err
	}
	defer closer.Close()
	ctx := log.WithContext(cmd.Context())

	client, err := transport.NewClient(transport.Options{
		Proxy:     cfg.Proxy,
		Timeout:   60 * time.Second,
		Verify:    cfg.Verify,
		UserAgent: cfg.UserAgent,
	})
	if err != nil {
		return err
	}
	defer transport.CloseIdle(client)

	fc, err := firecrawl.FromEnv(cfg.Firecrawl.APIKeyEnv, cfg.Firecrawl.APIURL, client)
	if err != nil {
		return err
	}

	var limiter *rate.Limiter
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}

	report, err := chain.Run(ctx, opts, chain.RunSearch, fc, limiter)
	if err != nil {
		var serr *chain.SearchError
		if errors.As(err, &serr) && serr.Stderr != "" {
			fmt.Fprintln(os.Stderr, serr.Stderr)
		}
		return err
	}
	if jsonOutput {
		return chain.WriteJSON(cmd.OutOrStdout(), report)
	}
	return chain.WriteText(cmd.OutOrStdout(), report)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
