package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/custodia-labs/docsync/internal/adapters/driving/inbox"
	"github.com/custodia-labs/docsync/internal/logger"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run background sync, upload and inbox watching",
	Long: `Runs until interrupted. The daemon keeps the scheduled sync and upload
tasks running, polls server health, counts pending changes and, when an
inbox directory is configured, queues every capture dropped into it.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

// Flags for daemon.
var (
	daemonLogFile string
	daemonInbox   string
)

func init() {
	daemonCmd.Flags().StringVar(&daemonLogFile, "log-file", "", "Write logs to a rotating file")
	daemonCmd.Flags().StringVar(&daemonInbox, "inbox", "", "Watch this directory for captures (overrides upload.inbox_dir)")
	rootCmd.AddCommand(daemonCmd)
}

// runner is implemented by connectivity observers that poll.
type runner interface {
	Run(ctx context.Context) error
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	if daemonLogFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   daemonLogFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		defer rotating.Close()
		logger.SetOutput(rotating)
		logger.SetTimestamps(true)
		defer func() {
			logger.SetTimestamps(false)
			logger.SetOutput(os.Stderr)
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if queueService != nil {
		if _, err := queueService.RecoverInterrupted(ctx); err != nil {
			logger.Warn("Failed to requeue interrupted uploads: %v", err)
		}
	}

	for _, t := range scheduledTasks {
		if err := scheduler.Register(ctx, t.Spec, t.Worker); err != nil {
			return fmt.Errorf("registering task %s: %w", t.Spec.ID, err)
		}
	}

	watcher, err := newInboxWatcher()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Start(gctx)
	})
	if healthMonitor != nil {
		healthMonitor.SetForeground(false)
		g.Go(func() error {
			return healthMonitor.Start(gctx)
		})
	}
	if pendingCounter != nil {
		g.Go(func() error {
			return pendingCounter.Run(gctx)
		})
	}
	if r, ok := connObserver.(runner); ok {
		g.Go(func() error {
			return r.Run(gctx)
		})
	}
	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	cmd.Println("docsync daemon running, press Ctrl+C to stop.")
	logger.Info("Daemon started with %d tasks", len(scheduledTasks))

	err = g.Wait()
	if stopErr := scheduler.Stop(); stopErr != nil {
		logger.Warn("Scheduler stop error: %v", stopErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("daemon stopped: %w", err)
	}
	logger.Info("Daemon stopped")
	return nil
}

func newInboxWatcher() (*inbox.Watcher, error) {
	dir := daemonInbox
	if dir == "" && settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return nil, fmt.Errorf("failed to get settings: %w", err)
		}
		dir = settings.Upload.InboxDir
	}
	if dir == "" {
		return nil, nil
	}
	if queueService == nil {
		return nil, errors.New("queue service not configured")
	}
	w, err := inbox.NewWatcher(dir, queueService, inbox.DefaultSettle)
	if err != nil {
		return nil, fmt.Errorf("creating inbox watcher: %w", err)
	}
	return w, nil
}
