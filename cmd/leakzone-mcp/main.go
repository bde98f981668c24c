package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/leakzone-mcp/internal/catalog"
	"github.com/ironsheep/leakzone-mcp/internal/config"
	"github.com/ironsheep/leakzone-mcp/internal/export"
	"github.com/ironsheep/leakzone-mcp/internal/metrics"
	"github.com/ironsheep/leakzone-mcp/internal/raster"
	"github.com/ironsheep/leakzone-mcp/internal/server"
	"github.com/ironsheep/leakzone-mcp/internal/session"
	"github.com/ironsheep/leakzone-mcp/internal/store"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("leakzone-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("leakzone-mcp - MCP server for leak zones on a factory floor plan")
			fmt.Println()
			fmt.Println("Usage: leakzone-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from ./.env):")
			fmt.Println("  LEAKZONE_FLOORPLAN=<path>              Floor plan image (required)")
			fmt.Println("  LEAKZONE_CANONICAL_WIDTH=1200          Canonical coordinate width")
			fmt.Println("  LEAKZONE_STORE_DRIVER=sqlite           memory, sqlite or postgres")
			fmt.Println("  LEAKZONE_STORE_DSN=leakzones.db        SQLite file or Postgres URL")
			fmt.Println("  LEAKZONE_EXPORT_DRIVER=fs              fs or s3")
			fmt.Println("  LEAKZONE_EXPORT_ROOT=./exports         Directory for the fs driver")
			fmt.Println("  LEAKZONE_EXPORT_S3_BUCKET=<bucket>     Bucket for the s3 driver")
			fmt.Println("  LEAKZONE_EXPORT_S3_ENDPOINT=<url>      S3-compatible endpoint (MinIO)")
			fmt.Println("  LEAKZONE_METRICS_ADDR=:9090            Serve Prometheus metrics")
			fmt.Println("  LEAKZONE_LOG_LEVEL=debug               Enable debug logging")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if cfg.Debug() {
		log.Printf("Leak Zone MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	cache := raster.NewCache()
	info, err := raster.LoadInfo(cache, cfg.FloorPlan)
	if err != nil {
		return fmt.Errorf("failed to load floor plan: %w", err)
	}
	plan, err := cache.Load(cfg.FloorPlan)
	if err != nil {
		return fmt.Errorf("failed to load floor plan: %w", err)
	}

	recorder := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := recorder.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Printf("Metrics disabled: %v", err)
			}
		}()
	}

	backend, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		// Start read-only with no zones rather than refusing to serve.
		log.Printf("Zone store %s unavailable: %v", cfg.Store.Driver, err)
		failed := store.NewMemoryBackend()
		failed.Fail(err)
		backend = failed
	}
	zones := store.New(backend, store.WithObserver(recorder))
	defer zones.Close()

	sess, err := session.New(ctx, zones, catalog.Default(), plan, cfg.CanonicalWidth, session.WithObserver(recorder))
	if err != nil {
		return err
	}
	if cfg.Debug() {
		w, h := sess.Space().RealSize()
		log.Printf("Floor plan %s: %dx%d, %d zones", cfg.FloorPlan, w, h, sess.Registry().Len())
	}

	opts := []server.Option{server.WithPlanInfo(info), server.WithDebug(cfg.Debug())}
	sink, err := export.Open(ctx, cfg.Export)
	if err != nil {
		log.Printf("Export disabled: %v", err)
	} else {
		opts = append(opts, server.WithExporter(export.NewExporter(sink)))
	}

	return server.New(sess, opts...).Run(ctx)
}
