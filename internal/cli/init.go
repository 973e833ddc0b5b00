package cli

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/kbsync/internal/config"
	"github.com/kilupskalvis/kbsync/internal/store"
	"github.com/kilupskalvis/kbsync/internal/weaviate"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new kbsync deployment",
	Long: `Initialize a new kbsync deployment in the current directory.
This creates a .kbsync directory holding the configuration and the
content store.`,
	Run: runInit,
}

var (
	initURL    string
	initSource string
)

func init() {
	initCmd.Flags().StringVar(&initURL, "url", "http://localhost:8080", "Weaviate server URL")
	initCmd.Flags().StringVar(&initSource, "source", "", "Path to the curated CSV source")
}

func runInit(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	// Check if already initialized
	if _, err := config.FindRoot(); err == nil {
		exitError("kbsync deployment already exists")
	}

	fmt.Printf("Initializing kbsync deployment...\n")
	fmt.Printf("Weaviate URL: %s\n", initURL)

	// Test connection to Weaviate. Upsert strategy is decided once the
	// version is known; default to native until then.
	client, err := weaviate.NewClient(initURL, true)
	if err != nil {
		exitError("failed to create Weaviate client: %v", err)
	}

	fmt.Printf("Connecting to Weaviate...\n")
	if err := client.Ping(ctx); err != nil {
		exitError("failed to connect to Weaviate: %v", err)
	}

	// Detect server version
	var serverVersion string
	version, err := client.GetServerVersion(ctx)
	if err != nil {
		fmt.Printf("Warning: Could not detect Weaviate version\n")
	} else {
		serverVersion = version.Version
		fmt.Printf("Weaviate version: %s\n", version.Version)
	}

	// Initialize config
	cfg, err := config.Initialize(initURL, initSource)
	if err != nil {
		exitError("failed to initialize config: %v", err)
	}

	// Store detected server version
	if serverVersion != "" {
		cfg.ServerVersion = serverVersion
		if err := cfg.Save(); err != nil {
			fmt.Printf("Warning: Could not save server version to config: %v\n", err)
		}
	}
	if !cfg.SupportsNativeUpsert() {
		fmt.Printf("Warning: Server < 1.14, chunk writes will use delete-then-insert\n")
	}

	// Initialize store
	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to create store: %v", err)
	}
	defer st.Close()

	if err := st.Initialize(); err != nil {
		exitError("failed to initialize store: %v", err)
	}

	// Create the chunk class up front so the first sync pass only writes
	// objects.
	fmt.Printf("Ensuring chunk class %s...\n", cfg.ChunkClass)
	if err := client.EnsureChunkClass(ctx, cfg.ChunkClass); err != nil {
		exitError("failed to create chunk class: %v", err)
	}

	fmt.Printf("\nInitialized kbsync deployment in .kbsync/\n")
	fmt.Printf("Vector store at %s\n", initURL)
	if initSource != "" {
		fmt.Printf("Curated source: %s\n", initSource)
	}
	fmt.Printf("\nRun 'kbsync sync' to load the knowledge base.\n")
}
