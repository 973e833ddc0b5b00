// Package cli implements the command-line interface for kbsync.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kilupskalvis/kbsync/internal/config"
	"github.com/kilupskalvis/kbsync/internal/embed"
	"github.com/kilupskalvis/kbsync/internal/enhance"
	"github.com/kilupskalvis/kbsync/internal/source"
	"github.com/kilupskalvis/kbsync/internal/store"
	kbsync "github.com/kilupskalvis/kbsync/internal/sync"
	"github.com/kilupskalvis/kbsync/internal/weaviate"
	"github.com/spf13/cobra"
)

var verbose bool

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config *config.Config
	Store  *store.Store
	Client weaviate.ClientInterface
	Embed  embed.Service
	Logger *slog.Logger
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
}

// initContext initializes config and store (no client)
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to open store: %v", err)
	}
	if err := st.Initialize(); err != nil {
		st.Close()
		exitError("failed to initialize store: %v", err)
	}

	return &cmdContext{Config: cfg, Store: st, Logger: cliLogger()}
}

// initFullContext initializes config, store, weaviate client, and the
// embedding provider
func initFullContext() *cmdContext {
	ctx := initContext()

	client, err := weaviate.NewClient(ctx.Config.WeaviateURL, ctx.Config.SupportsNativeUpsert())
	if err != nil {
		ctx.Close()
		exitError("failed to create Weaviate client: %v", err)
	}
	ctx.Client = client
	ctx.Embed = embed.NewLocal(embed.DefaultDimensions)

	return ctx
}

// buildEngine wires the sync engine from a full context.
func (c *cmdContext) buildEngine() *kbsync.Engine {
	var sources []source.Reader
	if c.Config.Source.Path != "" {
		sources = append(sources, source.NewCSVReader(c.Config.Source.Path, c.Config.Source.KeyColumn, c.Config.Source.ContentColumn))
	}
	if c.Config.Source.UploadsDir != "" {
		sources = append(sources, source.NewDirReader(c.Config.Source.UploadsDir))
	}

	coord := kbsync.NewCoordinator(c.Store, c.Client, c.Embed, c.Config.ChunkClass, c.Logger)
	pipeline := enhance.New(c.Config.Enhancement, c.Logger)
	return kbsync.NewEngine(sources, c.Store, coord, pipeline, c.Logger)
}

// cliLogger logs warnings and errors to stderr; command output itself
// goes through fmt and color.
func cliLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	var out io.Writer = os.Stderr
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

var rootCmd = &cobra.Command{
	Use:   "kbsync",
	Short: "Knowledge base synchronization",
	Long: `kbsync keeps a knowledge base in step with its sources. It detects
changed records by content fingerprint, enhances uploaded documents,
and coordinates writes across the content store and the vector store.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortID returns first 8 characters of an ID
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
