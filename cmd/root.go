package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"duckse/internal/config"
	"duckse/internal/logging"
	"duckse/internal/render"
	"duckse/search"
)

var (
	searchType string
	region     string
	safeSearch string
	timeLimit  string
	maxResults int
	page       int
	backend    string

	imageSize    string
	imageColor   string
	imageType    string
	imageLayout  string
	imageLicense string

	videoResolution string
	videoDuration   string
	videoLicense    string

	expandURL     bool
	expandTimeout time.Duration
	jsonOutput    bool

	proxyURL   string
	timeout    time.Duration
	verify     string
	configPath string
	Verbose    bool
	logLevel   string
)

// appConfig is loaded before every command runs.
var appConfig *config.Config

var logCloser io.Closer

var RootCmd = &cobra.Command{
	Use:   "duckse [flags] <query...>",
	Short: "Search the web from the command line",
	Long: `duckse runs text, image, video, news and book searches through DuckDuckGo
and a handful of other engines, and prints the results as text or JSON.

Queries about today's Indonesian news are rewritten into a news search for
the id-id region.`,
	Args:              cobra.ArbitraryArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return setup(cmd, "") },
	RunE:              runSearch,
}

// configFlags maps config keys to the flags that override them.
var configFlags = map[string]string{
	"region":         "region",
	"safesearch":     "safesearch",
	"max_results":    "max-results",
	"timeout":        "timeout",
	"proxy":          "proxy",
	"verify":         "verify",
	"expand_timeout": "expand-timeout",
	"log_level":      "log-level",
}

func init() {
	flags := RootCmd.Flags()
	flags.StringVarP(&searchType, "type", "t", "text", "search type: text, images, videos, news or books")
	flags.StringVarP(&region, "region", "r", "us-en", "region code, e.g. us-en, id-id, wt-wt")
	flags.StringVarP(&safeSearch, "safesearch", "s", "moderate", "safe search: on, moderate or off")
	flags.StringVar(&timeLimit, "timelimit", "", "time filter: d, w, m or y")
	flags.IntVarP(&maxResults, "max-results", "m", 10, "maximum number of results (0 for no cap)")
	flags.IntVarP(&page, "page", "p", 1, "result page")
	flags.StringVarP(&backend, "backend", "b", search.BackendAuto, "comma separated engines, auto or all")

	flags.StringVar(&imageSize, "size", "", "image size: Small, Medium, Large, Wallpaper")
	flags.StringVar(&imageColor, "color", "", "image color, e.g. Monochrome, Red")
	flags.StringVar(&imageType, "type-image", "", "image type: photo, clipart, gif, transparent, line")
	flags.StringVar(&imageLayout, "layout", "", "image layout: Square, Tall, Wide")
	flags.StringVar(&imageLicense, "license-image", "", "image license: any, Public, Share, ShareCommercially, Modify, ModifyCommercially")

	flags.StringVar(&videoResolution, "resolution", "", "video resolution: high or standard")
	flags.StringVar(&videoDuration, "duration", "", "video duration: short, medium or long")
	flags.StringVar(&videoLicense, "license-videos", "", "video license: creativeCommon or youtube")

	flags.BoolVarP(&expandURL, "expand-url", "e", false, "follow result links and add resolved_url")
	flags.BoolVarP(&jsonOutput, "json", "j", false, "print results as JSON")

	pflags := RootCmd.PersistentFlags()
	pflags.DurationVar(&expandTimeout, "expand-timeout", 6*time.Second, "timeout for each link resolution")
	pflags.StringVar(&proxyURL, "proxy", "", "proxy URL (http, https, socks5); \"tb\" for the Tor Browser proxy")
	pflags.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP timeout for search requests")
	pflags.StringVar(&verify, "verify", "true", "verify TLS certificates: true, false or a CA bundle path")
	pflags.StringVar(&configPath, "config", "", "config file (default: config.yaml in the duckse home)")
	pflags.BoolVarP(&Verbose, "verbose", "v", false, "enable debug logging")
	pflags.StringVar(&logLevel, "log-level", "warn", "log level: trace, debug, info, warn, error")
}

// Execute runs the command tree with a context cancelled on interrupt.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return run(ctx)
}

// run executes the command tree and closes the log file however it ends.
// Cobra skips post-run hooks when RunE fails.
func run(ctx context.Context) error {
	defer teardown()
	return RootCmd.ExecuteContext(ctx)
}

// setup loads the configuration and puts the logger into the command's
// context. A non-empty logFile receives a copy of every log entry.
func setup(cmd *cobra.Command, logFile string) error {
	teardown()
	loader := config.NewLoader()
	for key, name := range configFlags {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := loader.BindFlag(key, f); err != nil {
				return err
			}
		}
	}
	cfg, err := loader.Load(configPath)
	if err != nil {
		return err
	}
	appConfig = cfg

	logger, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, Verbose: Verbose, File: logFile})
	if err != nil {
		return err
	}
	logCloser = closer
	if used := loader.Used(); used != "" {
		logger.Debug().Str("file", used).Msg("config loaded")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.WithContext(ctx))
	return nil
}

func teardown() {
	if logCloser != nil {
		logCloser.Close()
		logCloser = nil
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		q, err := promptQuery()
		if err != nil {
			return err
		}
		query = q
	}

	req, err := requestFromFlags(query)
	if err != nil {
		return err
	}
	req, results, err := runPipeline(cmd.Context(), appConfig, req, expandURL)
	if err != nil {
		return err
	}
	if jsonOutput {
		return render.JSON(cmd.OutOrStdout(), results)
	}
	return render.Pretty(cmd.OutOrStdout(), req.Category, results)
}

func requestFromFlags(query string) (search.Request, error) {
	category, err := search.ParseCategory(searchType)
	if err != nil {
		return search.Request{}, err
	}
	safe, err := search.ParseSafeSearch(appConfig.SafeSearch)
	if err != nil {
		return search.Request{}, err
	}
	tf, err := search.ParseTimeFilter(timeLimit)
	if err != nil {
		return search.Request{}, err
	}
	if page < 1 {
		return search.Request{}, fmt.Errorf("invalid page %d (must be 1 or more)", page)
	}
	if appConfig.MaxResults < 0 {
		return search.Request{}, errors.New("max-results must not be negative")
	}
	return search.Request{
		Query:      query,
		Category:   category,
		Region:     appConfig.Region,
		SafeSearch: safe,
		TimeFilter: tf,
		Page:       page,
		MaxResults: appConfig.MaxResults,
		Backend:    backend,
		Images: search.ImageFilters{
			Size:    imageSize,
			Color:   imageColor,
			Type:    imageType,
			Layout:  imageLayout,
			License: imageLicense,
		},
		Videos: search.VideoFilters{
			Resolution: videoResolution,
			Duration:   videoDuration,
			License:    videoLicense,
		},
	}, nil
}
