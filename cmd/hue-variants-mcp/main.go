package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/ironsheep/hue-variants-mcp/internal/config"
	"github.com/ironsheep/hue-variants-mcp/internal/naming"
	"github.com/ironsheep/hue-variants-mcp/internal/server"
	"github.com/ironsheep/hue-variants-mcp/internal/variant"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Exit codes for run mode.
const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitCancelled = 130
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("hue-variants-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp(os.Stdout)
			return
		case "run":
			setupLogging()
			os.Exit(runCommand(os.Args[2:], os.Stderr))
		}
	}

	setupLogging()
	if debugEnabled() {
		log.Printf("Hue Variants MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	cfg, err := loadConfig(os.Getenv("HUE_VARIANTS_CONFIG"))
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	srv := server.NewWithConfig(cfg)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "hue-variants-mcp - batch hue-variant image generator")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  hue-variants-mcp                 Run the MCP server on stdin/stdout")
	fmt.Fprintln(w, "  hue-variants-mcp run [flags]     Generate variants once and exit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run flags:")
	fmt.Fprintln(w, "  -image PATH      Source image (required)")
	fmt.Fprintln(w, "  -out DIR         Output directory (required)")
	fmt.Fprintln(w, "  -name NAME       Base file name (required)")
	fmt.Fprintln(w, "  -prefix TEXT     Text after the step index")
	fmt.Fprintln(w, "  -version TEXT    Version label after _v")
	fmt.Fprintln(w, "  -config FILE     YAML configuration file")
	fmt.Fprintln(w, "  -overlay         Draw slogans on the text band")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  HUE_VARIANTS_LOG_LEVEL=debug     Enable debug logging")
	fmt.Fprintln(w, "  HUE_VARIANTS_CONFIG=FILE         Configuration file for server mode")
	fmt.Fprintln(w, "  HUE_VARIANTS_FONT_PATH=FILE      Override the overlay font")
	fmt.Fprintln(w, "  HUE_VARIANTS_STEP_COUNT=N        Override the number of variants")
	fmt.Fprintln(w, "  HUE_VARIANTS_WORKERS=N           Override the worker count")
	fmt.Fprintln(w, "  HUE_VARIANTS_JPEG_QUALITY=N      Override the JPEG quality")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "In server mode the process communicates via MCP protocol over stdin/stdout.")
	fmt.Fprintln(w, "Configure it in your MCP client (e.g., Claude Desktop).")
}

// setupLogging sends logs to stderr; stdout is reserved for MCP traffic.
func setupLogging() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
}

func debugEnabled() bool {
	return os.Getenv("HUE_VARIANTS_LOG_LEVEL") == "debug"
}

// loadConfig reads path (defaults when empty or missing) and applies
// environment overrides.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Defaults()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	config.ApplyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runCommand implements one-shot mode and returns the process exit code.
func runCommand(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)

	imagePath := fs.String("image", "", "source image")
	outDir := fs.String("out", "", "output directory")
	baseName := fs.String("name", "", "base file name")
	prefix := fs.String("prefix", "", "text after the step index")
	version := fs.String("version", "", "version label")
	configPath := fs.String("config", "", "YAML configuration file")
	overlay := fs.Bool("overlay", false, "draw slogans on the text band")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *imagePath == "" || *outDir == "" || *baseName == "" {
		fmt.Fprintln(stderr, "run: -image, -out, and -name are required")
		fs.Usage()
		return exitUsage
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return exitFailure
	}
	if *overlay {
		cfg.OverlayEnabled = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	job, err := variant.New(variant.Request{
		ImagePath: *imagePath,
		OutputDir: *outDir,
		Template:  naming.Template{BaseName: *baseName, Prefix: *prefix, Version: *version},
		Config:    cfg,
		OnProgress: func(index int) {
			fmt.Fprintf(stderr, "progress %d/%d\n", variant.ScaleProgress(index, cfg.StepCount, cfg.FullProgress), cfg.FullProgress)
		},
		OnComplete: func() {
			fmt.Fprintf(stderr, "progress %d/%d\n", cfg.FullProgress, cfg.FullProgress)
		},
	})
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return exitFailure
	}

	if debugEnabled() {
		log.Printf("Job %s: %d steps from %s into %s", job.ID(), cfg.StepCount, *imagePath, *outDir)
	}

	err = job.Run(ctx)
	st := job.Status()
	switch {
	case err == nil:
		fmt.Fprintf(stderr, "done: %d files written\n", len(st.Files))
		return exitOK
	case errors.Is(err, variant.ErrCancelled):
		fmt.Fprintf(stderr, "cancelled: %d files written\n", len(st.Files))
		return exitCancelled
	default:
		fmt.Fprintf(stderr, "run: %v\n", err)
		return exitFailure
	}
}
