// Package cli provides the docsync command line interface.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsync/internal/core/ports/driven"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services configured by the bootstrap hook. Commands nil-check the ones
// they need; remote-dependent services stay nil until a server is set.
var (
	settingsService  driving.SettingsService
	syncOrchestrator driving.SyncOrchestrator
	documentService  driving.DocumentService
	queueService     driving.QueueService
	uploadAgent      driving.UploadAgent
	healthMonitor    driving.HealthMonitor
	scheduler        driving.Scheduler
	pendingCounter   driving.PendingCounter
	connObserver     driven.ConnectivityObserver
	obtainToken      TokenExchange
	scheduledTasks   []TaskBinding
)

// Global flags.
var (
	verbose bool
	offline bool
)

// skipBootstrap marks commands that run without services.
const skipBootstrap = "skip-bootstrap"

// Options are the global flags passed to the bootstrap hook.
type Options struct {
	Verbose bool
	Offline bool
}

// Services holds everything a command may use.
type Services struct {
	Settings     driving.SettingsService
	Sync         driving.SyncOrchestrator
	Documents    driving.DocumentService
	Queue        driving.QueueService
	Uploads      driving.UploadAgent
	Health       driving.HealthMonitor
	Scheduler    driving.Scheduler
	Pending      driving.PendingCounter
	Connectivity driven.ConnectivityObserver
	ObtainToken  TokenExchange

	// Tasks are registered with the scheduler by the daemon.
	Tasks []TaskBinding

	// Close releases storage. May be nil.
	Close func() error
}

// TaskBinding pairs a task declaration with its worker.
type TaskBinding struct {
	Spec   driving.TaskSpec
	Worker driving.Worker
}

// BootstrapFunc builds the services once flags are parsed.
type BootstrapFunc func(opts Options) (*Services, error)

var (
	bootstrap BootstrapFunc
	closeFn   func() error
)

var rootCmd = &cobra.Command{
	Use:   "docsync",
	Short: "Offline-first document sync and upload",
	Long: `docsync keeps a local cache of a Paperless-style document server,
queues edits made while offline and uploads captured scans when the
server becomes reachable.`,
	SilenceUsage:      true,
	PersistentPreRunE: runBootstrap,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Treat the network as unavailable")
}

// SetBootstrap installs the hook that builds services before a command runs.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// Configure sets the services directly.
func Configure(s *Services) {
	if s == nil {
		return
	}
	settingsService = s.Settings
	syncOrchestrator = s.Sync
	documentService = s.Documents
	queueService = s.Queue
	uploadAgent = s.Uploads
	healthMonitor = s.Health
	scheduler = s.Scheduler
	pendingCounter = s.Pending
	connObserver = s.Connectivity
	obtainToken = s.ObtainToken
	scheduledTasks = s.Tasks
	closeFn = s.Close
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if bootstrap == nil || cmd.Annotations[skipBootstrap] == "true" {
		return nil
	}
	services, err := bootstrap(Options{Verbose: verbose, Offline: offline})
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	Configure(services)
	return nil
}

// Execute runs the root command and releases storage afterwards.
func Execute() error {
	err := rootCmd.Execute()
	if closeFn != nil {
		if cerr := closeFn(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing storage: %w", cerr))
		}
	}
	return err
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}
