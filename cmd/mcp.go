package cmd

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"duckse/internal/appdirs"
	"duckse/internal/render"
	"duckse/search"
)

// path to the MCP debug log file, override with --log
var mcpLogPath string

// mcpCmd serves the search tool over stdio.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run duckse as an MCP server over stdio",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := mcpLogPath
		if path == "" {
			p, err := appdirs.LogFile("duckse-mcp.log")
			if err != nil {
				return err
			}
			path = p
		}
		return setup(cmd, path)
	},
	RunE: runMCP,
}

func init() {
	RootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVarP(&mcpLogPath, "log", "l", "", "path to the MCP debug log file (default: duckse-mcp.log in the logs dir)")
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := zerolog.Ctx(ctx)

	s := server.NewMCPServer("duckse", "1.0.0", server.WithToolCapabilities(false))
	s.AddTool(searchTool(), func(toolCtx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// the server's context does not carry our logger
		return handleSearchTool(log.WithContext(toolCtx), req)
	})

	log.Info().Msg("mcp server listening on stdio")
	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func searchTool() mcp.Tool {
	return mcp.NewTool("search",
		mcp.WithDescription("Search the web with duckse and return the results as JSON."),
		mcp.WithString("query", mcp.Required(), mcp.Description("search terms")),
		mcp.WithString("type", mcp.Description("text, images, videos, news or books (default text)")),
		mcp.WithString("region", mcp.Description("region code such as us-en or id-id")),
		mcp.WithString("safesearch", mcp.Description("on, moderate or off")),
		mcp.WithString("timelimit", mcp.Description("d, w, m or y")),
		mcp.WithNumber("max_results", mcp.Description("maximum number of results")),
		mcp.WithString("backend", mcp.Description("comma separated engines, auto or all")),
		mcp.WithBoolean("expand_url", mcp.Description("follow links and add resolved_url")),
	)
}

func handleSearchTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.Params.Arguments
	zerolog.Ctx(ctx).Debug().Interface("args", args).Msg("search tool called")

	r, expand, err := requestFromToolArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, results, err := runPipeline(ctx, appConfig, r, expand)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("search tool failed")
		return mcp.NewToolResultError(err.Error()), nil
	}
	var buf bytes.Buffer
	if err := render.JSON(&buf, results); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func requestFromToolArgs(args map[string]interface{}) (search.Request, bool, error) {
	query := strings.TrimSpace(mcp.ExtractString(args, "query"))
	if query == "" {
		return search.Request{}, false, fmt.Errorf("query argument is required")
	}
	typ := mcp.ExtractString(args, "type")
	if typ == "" {
		typ = string(search.CategoryText)
	}
	category, err := search.ParseCategory(typ)
	if err != nil {
		return search.Request{}, false, err
	}
	safeArg := mcp.ExtractString(args, "safesearch")
	if safeArg == "" {
		safeArg = appConfig.SafeSearch
	}
	safe, err := search.ParseSafeSearch(safeArg)
	if err != nil {
		return search.Request{}, false, err
	}
	tf, err := search.ParseTimeFilter(mcp.ExtractString(args, "timelimit"))
	if err != nil {
		return search.Request{}, false, err
	}
	reg := mcp.ExtractString(args, "region")
	if reg == "" {
		reg = appConfig.Region
	}
	limit := appConfig.MaxResults
	if v, ok := args["max_results"].(float64); ok {
		if v < 0 {
			return search.Request{}, false, fmt.Errorf("max_results must not be negative")
		}
		limit = int(v)
	}
	expand, _ := args["expand_url"].(bool)

	return search.Request{
		Query:      query,
		Category:   category,
		Region:     reg,
		SafeSearch: safe,
		TimeFilter: tf,
		Page:       1,
		MaxResults: limit,
		Backend:    mcp.ExtractString(args, "backend"),
	}, expand, nil
}
