package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	kbsync "github.com/kilupskalvis/kbsync/internal/sync"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending changes",
	Long:  `Show what the next sync pass would change, without applying anything.`,
	Run:   runStatus,
}

var statusOrphans bool

func init() {
	statusCmd.Flags().BoolVar(&statusOrphans, "orphans", false, "cross-check the ledger against the content store")
}

func runStatus(cmd *cobra.Command, args []string) {
	bgCtx := context.Background()
	c := initFullContext()
	defer c.Close()

	engine := c.buildEngine()

	entries, err := c.Store.EntryCount()
	if err != nil {
		exitError("failed to read store: %v", err)
	}
	ledger, err := c.Store.SyncStateCount()
	if err != nil {
		exitError("failed to read sync state: %v", err)
	}
	fmt.Printf("Knowledge entries: %d\n", entries)
	fmt.Printf("Ledger entries:    %d\n", ledger)

	changes, summary, err := engine.Plan(bgCtx)
	if err != nil {
		exitError("failed to compute changes: %v", err)
	}

	if changes.IsEmpty() && summary.Failed == 0 {
		fmt.Println("\nNothing to sync, knowledge base is up to date")
	} else {
		green := color.New(color.FgGreen)
		yellow := color.New(color.FgYellow)
		red := color.New(color.FgRed)

		fmt.Println("\nChanges to be applied:")
		for _, change := range changes.Inserts {
			green.Printf("        new:      %s\n", change.Record.Identity)
		}
		for _, change := range changes.Updates {
			yellow.Printf("        modified: %s\n", change.Record.Identity)
		}
		for _, identity := range changes.Deletes {
			red.Printf("        deleted:  %s\n", identity)
		}

		parts := []string{}
		if n := len(changes.Inserts); n > 0 {
			parts = append(parts, fmt.Sprintf("%d new", n))
		}
		if n := len(changes.Updates); n > 0 {
			parts = append(parts, fmt.Sprintf("%d modified", n))
		}
		if n := len(changes.Deletes); n > 0 {
			parts = append(parts, fmt.Sprintf("%d deleted", n))
		}
		if summary.Failed > 0 {
			parts = append(parts, fmt.Sprintf("%d unreadable", summary.Failed))
		}
		fmt.Printf("\n%s\n", strings.Join(parts, ", "))
		fmt.Println("\nUse 'kbsync sync' to apply.")
	}

	if statusOrphans {
		printOrphans(engine)
	}
}

func printOrphans(engine *kbsync.Engine) {
	report, err := engine.Orphans()
	if err != nil {
		exitError("failed to cross-check stores: %v", err)
	}

	fmt.Println()
	if report.IsEmpty() {
		fmt.Println("Ledger and content store agree")
		return
	}

	red := color.New(color.FgRed)
	if len(report.EntriesWithoutLedger) > 0 {
		fmt.Println("Entries with no ledger record:")
		for _, identity := range report.EntriesWithoutLedger {
			red.Printf("        %s\n", identity)
		}
	}
	if len(report.LedgerWithoutEntries) > 0 {
		fmt.Println("Ledger records with no entry:")
		for _, identity := range report.LedgerWithoutEntries {
			red.Printf("        %s\n", identity)
		}
	}
	fmt.Println("\nUse 'kbsync sync --full' to rebuild.")
}
