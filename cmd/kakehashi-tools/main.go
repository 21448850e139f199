// kakehashi-tools serves the tool registry over MCP on stdin/stdout, so
// external agent clients can call the same tools the chat bot exposes.
// Backend modes derive from the same configuration as the bot; with no
// credentials every tool answers from the mock fixtures.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/kakehashi/kakehashi/common/environment"
	"github.com/kakehashi/kakehashi/common/version"
	"github.com/kakehashi/kakehashi/internal/kakehashi/config"
	"github.com/kakehashi/kakehashi/internal/kakehashi/confluence"
	"github.com/kakehashi/kakehashi/internal/kakehashi/jira"
	"github.com/kakehashi/kakehashi/internal/kakehashi/mcp"
	"github.com/kakehashi/kakehashi/internal/kakehashi/tools"
)

func main() {
	configPath := flag.String("config", environment.StringOr("KKH_CONFIG", "kakehashi.yaml"),
		"path to the YAML config file (optional; env vars override)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	// stdout belongs to the MCP protocol; logs go to stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	regCfg := tools.RegistryConfig{
		TrackerMode: cfg.TrackerMode(),
		WikiMode:    cfg.WikiMode(),
	}
	if regCfg.TrackerMode == tools.Live {
		regCfg.Tracker = jira.New(jira.Config{
			BaseURL:  cfg.Tracker.URL,
			Email:    cfg.Tracker.Email,
			APIToken: cfg.Tracker.APIToken,
			Timeout:  cfg.BackendTimeout,
		})
	}
	if regCfg.WikiMode == tools.Live {
		regCfg.Wiki = confluence.New(confluence.Config{
			BaseURL:  cfg.Wiki.URL,
			Email:    cfg.Wiki.Email,
			APIToken: cfg.Wiki.APIToken,
			Timeout:  cfg.BackendTimeout,
		})
	}
	slog.Info("backend modes", "tracker", regCfg.TrackerMode, "wiki", regCfg.WikiMode)

	registry := tools.NewRegistry(regCfg)
	dispatcher, err := tools.NewDispatcher(registry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := mcp.ServeStdio(mcp.NewServer(registry, dispatcher)); err != nil {
		fmt.Fprintf(os.Stderr, "Error serving MCP: %v\n", err)
		os.Exit(1)
	}
}
