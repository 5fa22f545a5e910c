package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"duckse/internal/firecrawl"
	"duckse/internal/transport"
)

var (
	fcSearchLimit int
	fcLang        string
	fcCountry     string
	fcTBS         string
	fcWithContent bool

	fcMarkdown   bool
	fcHTML       bool
	fcScreenshot bool
	fcFullPage   bool

	fcCrawlLimit int
	fcMaxDepth   int
	fcInclude    []string
	fcExclude    []string
	fcNoWait     bool
)

// firecrawlTimeout bounds a single Firecrawl API call.
const firecrawlTimeout = 90 * time.Second

var firecrawlCmd = &cobra.Command{
	Use:   "firecrawl",
	Short: "Search, scrape and crawl through the Firecrawl API",
	Long: `Talks to the Firecrawl API. The API key is read from FIRECRAWL_API_KEY,
or from the variable named by firecrawl.api_key_env in the config file.`,
}

var firecrawlSearchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Run a Firecrawl web search",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fc, err := newFirecrawl()
		if err != nil {
			return err
		}
		req := firecrawl.SearchRequest{
			Query:   strings.Join(args, " "),
			Limit:   fcSearchLimit,
			Lang:    fcLang,
			Country: fcCountry,
			TBS:     fcTBS,
		}
		if fcWithContent {
			req.ScrapeOptions = &firecrawl.ScrapeOptions{Formats: scrapeFormats(), OnlyMainContent: true}
		}
		res, err := fc.Search(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("firecrawl search failed: %w", err)
		}
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

var firecrawlScrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "Scrape one page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fc, err := newFirecrawl()
		if err != nil {
			return err
		}
		res, err := fc.Scrape(cmd.Context(), firecrawl.ScrapeRequest{
			URL:           args[0],
			ScrapeOptions: firecrawl.ScrapeOptions{Formats: scrapeFormats(), OnlyMainContent: !fcFullPage},
		})
		if err != nil {
			return fmt.Errorf("firecrawl scrape failed: %w", err)
		}
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

var firecrawlCrawlCmd = &cobra.Command{
	Use:   "crawl <url>",
	Short: "Crawl a site and wait for the pages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fc, err := newFirecrawl()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		job, err := fc.StartCrawl(ctx, firecrawl.CrawlRequest{
			URL:           args[0],
			Limit:         fcCrawlLimit,
			MaxDepth:      fcMaxDepth,
			IncludePaths:  fcInclude,
			ExcludePaths:  fcExclude,
			ScrapeOptions: &firecrawl.ScrapeOptions{Formats: scrapeFormats(), OnlyMainContent: !fcFullPage},
		})
		if err != nil {
			return fmt.Errorf("firecrawl crawl failed: %w", err)
		}
		zerolog.Ctx(ctx).Info().Str("id", job.ID).Msg("crawl started")
		if fcNoWait {
			return writeJSON(cmd.OutOrStdout(), job)
		}
		st, err := fc.WaitCrawl(ctx, job.ID, appConfig.Firecrawl.PollInterval)
		if err != nil {
			if ctx.Err() != nil {
				// the caller gave up; stop the job
				cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
				if cerr := fc.CancelCrawl(cctx, job.ID); cerr != nil {
					zerolog.Ctx(ctx).Warn().Err(cerr).Str("id", job.ID).Msg("cancel crawl")
				}
				cancel()
			}
			return fmt.Errorf("firecrawl crawl %s: %w", job.ID, err)
		}
		return writeJSON(cmd.OutOrStdout(), st)
	},
}

var firecrawlStatusCmd = &cobra.Command{
	Use:   "crawl-status <id>",
	Short: "Show the state of a crawl job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fc, err := newFirecrawl()
		if err != nil {
			return err
		}
		st, err := fc.CrawlStatus(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("firecrawl crawl status: %w", err)
		}
		return writeJSON(cmd.OutOrStdout(), st)
	},
}

var firecrawlCancelCmd = &cobra.Command{
	Use:   "crawl-cancel <id>",
	Short: "Cancel a crawl job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fc, err := newFirecrawl()
		if err != nil {
			return err
		}
		if err := fc.CancelCrawl(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("firecrawl cancel: %w", err)
		}
		cmd.Printf("cancelled %s\n", args[0])
		return nil
	},
}

func init() {
	RootCmd.AddCommand(firecrawlCmd)
	firecrawlCmd.AddCommand(firecrawlSearchCmd, firecrawlScrapeCmd, firecrawlCrawlCmd, firecrawlStatusCmd, firecrawlCancelCmd)

	for _, c := range []*cobra.Command{firecrawlSearchCmd, firecrawlScrapeCmd, firecrawlCrawlCmd} {
		f := c.Flags()
		f.BoolVar(&fcMarkdown, "markdown", true, "include markdown")
		f.BoolVar(&fcHTML, "html", false, "include html")
		f.BoolVar(&fcScreenshot, "screenshot", false, "include a screenshot")
	}
	for _, c := range []*cobra.Command{firecrawlScrapeCmd, firecrawlCrawlCmd} {
		c.Flags().BoolVar(&fcFullPage, "full-page", false, "keep navigation and footers")
	}

	sf := firecrawlSearchCmd.Flags()
	sf.IntVarP(&fcSearchLimit, "limit", "n", 5, "number of results")
	sf.StringVar(&fcLang, "lang", "", "result language, e.g. en")
	sf.StringVar(&fcCountry, "country", "", "result country, e.g. us")
	sf.StringVar(&fcTBS, "tbs", "", "time filter, e.g. qdr:d")
	sf.BoolVar(&fcWithContent, "scrape", false, "also scrape every result")

	cf := firecrawlCrawlCmd.Flags()
	cf.IntVarP(&fcCrawlLimit, "limit", "n", 10, "maximum pages to crawl")
	cf.IntVar(&fcMaxDepth, "max-depth", 0, "maximum link depth (0 for the API default)")
	cf.StringSliceVar(&fcInclude, "include", nil, "path patterns to include")
	cf.StringSliceVar(&fcExclude, "exclude", nil, "path patterns to exclude")
	cf.BoolVar(&fcNoWait, "no-wait", false, "print the job id instead of waiting")
}

func newFirecrawl() (*firecrawl.Client, error) {
	opts := transportOptions(appConfig)
	opts.Timeout = firecrawlTimeout
	client, err := transport.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return firecrawl.FromEnv(appConfig.Firecrawl.APIKeyEnv, appConfig.Firecrawl.APIURL, client)
}

func scrapeFormats() []string {
	var formats []string
	if fcMarkdown {
		formats = append(formats, "markdown")
	}
	if fcHTML {
		formats = append(formats, "html")
	}
	if fcScreenshot {
		formats = append(formats, "screenshot")
	}
	return formats
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
