package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kakehashi/kakehashi/common/environment"
	"github.com/kakehashi/kakehashi/common/version"
	"github.com/kakehashi/kakehashi/internal/kakehashi/app"
	"github.com/kakehashi/kakehashi/internal/kakehashi/config"
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

	fmt.Printf("Kakehashi %s\n\n", version.Info())

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Matrix.Homeserver == "" {
		fmt.Fprintln(os.Stderr, "Error: KKH_MATRIX_HOMESERVER is required")
		os.Exit(1)
	}
	if cfg.Matrix.UserID == "" {
		fmt.Fprintln(os.Stderr, "Error: KKH_MATRIX_USER_ID is required")
		os.Exit(1)
	}
	if cfg.Matrix.AccessToken == "" {
		fmt.Fprintln(os.Stderr, "Error: KKH_MATRIX_ACCESS_TOKEN is required")
		os.Exit(1)
	}
	if len(cfg.Matrix.Rooms) == 0 {
		fmt.Fprintln(os.Stderr, "Error: KKH_MATRIX_ROOMS is required")
		os.Exit(1)
	}

	bot, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Kakehashi: %v\n", err)
		os.Exit(1)
	}
	defer bot.Stop()

	if err := bot.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running Kakehashi: %v\n", err)
		os.Exit(1)
	}
}
