package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	kbsync "github.com/kilupskalvis/kbsync/internal/sync"
	"github.com/kilupskalvis/kbsync/internal/watch"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the sources and sync on change",
	Long: `Monitor the curated source and the uploads directory, and run a
sync pass whenever changes settle. Stop with Ctrl-C.`,
	Run: runWatch,
}

var watchDebounce time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before a change triggers a sync")
}

func runWatch(cmd *cobra.Command, args []string) {
	c := initFullContext()
	defer c.Close()

	var paths []string
	if c.Config.Source.Path != "" {
		paths = append(paths, c.Config.Source.Path)
	}
	if c.Config.Source.UploadsDir != "" {
		paths = append(paths, c.Config.Source.UploadsDir)
	}
	if len(paths) == 0 {
		exitError("no sources configured to watch")
	}

	engine := c.buildEngine()

	trigger := func(ctx context.Context) {
		fmt.Println("Change detected, syncing...")
		summary, err := engine.Sync(ctx, kbsync.Options{})
		if errors.Is(err, kbsync.ErrPassInProgress) {
			return
		}
		if err != nil {
			fmt.Printf("sync aborted: %v\n", err)
			return
		}
		printSummary(summary)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Watching for changes (Ctrl-C to stop)...")
	w := watch.New(paths, watchDebounce, trigger, c.Logger)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		exitError("watch failed: %v", err)
	}
	fmt.Println("\nStopped")
}
