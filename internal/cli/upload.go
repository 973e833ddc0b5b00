package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	kbsync "github.com/kilupskalvis/kbsync/internal/sync"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a document into the knowledge base",
	Long: `Copy a document into the uploads directory and run a sync pass.
The document is enhanced (type detection, entity extraction, chunking,
metadata enrichment) before it is stored.`,
	Args: cobra.ExactArgs(1),
	Run:  runUpload,
}

var uploadName string

func init() {
	uploadCmd.Flags().StringVar(&uploadName, "name", "", "store the document under this name instead of its file name")
}

func runUpload(cmd *cobra.Command, args []string) {
	bgCtx := context.Background()
	c := initFullContext()
	defer c.Close()

	if c.Config.Source.UploadsDir == "" {
		exitError("no uploads directory configured")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		exitError("failed to read %s: %v", args[0], err)
	}

	name := uploadName
	if name == "" {
		name = filepath.Base(args[0])
	}
	if filepath.Base(name) != name {
		exitError("invalid document name %q", name)
	}

	if err := os.MkdirAll(c.Config.Source.UploadsDir, 0755); err != nil {
		exitError("failed to create uploads directory: %v", err)
	}
	dest := filepath.Join(c.Config.Source.UploadsDir, name)
	if err := os.WriteFile(dest, data, 0644); err != nil {
		exitError("failed to save document: %v", err)
	}

	fmt.Printf("Uploaded %s\n", name)

	engine := c.buildEngine()
	summary, err := engine.Sync(bgCtx, kbsync.Options{})
	if err != nil {
		exitError("sync aborted: %v", err)
	}
	printSummary(summary)
}
