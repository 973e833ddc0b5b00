package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/kilupskalvis/kbsync/internal/models"
	kbsync "github.com/kilupskalvis/kbsync/internal/sync"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the knowledge base with its sources",
	Long: `Run one reconciliation pass: diff the sources against the ledger,
apply the changed records to the content store and the vector store,
and commit the ledger per record.`,
	Run: runSync,
}

var syncFull bool

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "re-apply every record regardless of fingerprints")
}

func runSync(cmd *cobra.Command, args []string) {
	bgCtx := context.Background()
	c := initFullContext()
	defer c.Close()

	engine := c.buildEngine()

	if syncFull {
		fmt.Println("Running full reload...")
	} else {
		fmt.Println("Syncing...")
	}

	summary, err := engine.Sync(bgCtx, kbsync.Options{ForceFull: syncFull})
	if err != nil {
		if summary != nil {
			printSummary(summary)
		}
		exitError("sync aborted: %v", err)
	}

	printSummary(summary)
}

func printSummary(summary *models.SyncSummary) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	if summary.Total() == 0 && summary.Failed == 0 {
		fmt.Printf("Nothing to do (%d unchanged)\n", summary.Skipped)
		return
	}

	if summary.Inserted > 0 {
		green.Printf("  %d inserted\n", summary.Inserted)
	}
	if summary.Updated > 0 {
		yellow.Printf("  %d updated\n", summary.Updated)
	}
	if summary.Deleted > 0 {
		red.Printf("  %d deleted\n", summary.Deleted)
	}
	if summary.Skipped > 0 {
		fmt.Printf("  %d unchanged\n", summary.Skipped)
	}

	if summary.Failed > 0 {
		red.Printf("\n%d record(s) failed:\n", summary.Failed)
		for _, failure := range summary.Failures {
			red.Printf("  %s\n", failure.String())
		}
	}
}
