// Command docsync keeps an offline cache of a document server in sync
// and uploads captured scans when the server is reachable.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/docsync/internal/adapters/driven/auth"
	"github.com/custodia-labs/docsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docsync/internal/adapters/driven/connectivity"
	"github.com/custodia-labs/docsync/internal/adapters/driven/paperless"
	"github.com/custodia-labs/docsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
	"github.com/custodia-labs/docsync/internal/core/services"
	"github.com/custodia-labs/docsync/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap wires storage, the REST client and the core services.
// Services that talk to the server are left nil until it is configured.
func bootstrap(opts cli.Options) (*cli.Services, error) {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	store, err := sqlite.NewStore(settings.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("Using database %s", store.Path())

	var conn driven.ConnectivityObserver
	if opts.Offline {
		conn = connectivity.NewStatic(false)
	} else {
		conn = connectivity.NewNetObserver(0)
	}

	gate := services.NewChangeGate()
	queueService := services.NewQueueService(store.UploadQueue(), store.PendingChangeStore(), gate)

	s := &cli.Services{
		Settings:     settingsService,
		Queue:        queueService,
		Scheduler:    services.NewScheduler(settings.Scheduler, store.SchedulerStore(), conn),
		Pending:      services.NewPendingCounter(store.PendingChangeStore(), 0),
		Connectivity: conn,
		ObtainToken:  paperless.ObtainToken,
		Close:        store.Close,
	}

	if err := settings.Server.Validate(); err != nil {
		logger.Debug("Server not configured: %v", err)
		return s, nil
	}

	client, err := paperless.NewClient(paperless.Config{BaseURL: settings.Server.URL}, auth.NewConfigTokenProvider(configStore))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("creating client: %w", err)
	}

	health := services.NewHealthMonitor(client, conn, settings.Health, settings.Server.URL)
	syncOrchestrator := services.NewSyncOrchestrator(
		client,
		store.CacheStore(),
		store.PendingChangeStore(),
		store.MetadataStore(),
		gate,
		services.SyncOptions{PageSize: settings.Sync.PageSize, TrashRetention: settings.Trash.Retention},
	)
	uploadAgent := services.NewUploadAgent(store.UploadQueue(), client, health)

	s.Health = health
	s.Sync = syncOrchestrator
	s.Uploads = uploadAgent
	s.Documents = services.NewDocumentService(
		store.CacheStore(), store.PendingChangeStore(), client, health, gate, settings.Trash.Retention)

	syncSpec := services.SyncTaskSpec
	syncSpec.Interval = settings.Sync.Interval
	uploadSpec := services.UploadTaskSpec
	uploadSpec.Interval = settings.Upload.Interval
	s.Tasks = []cli.TaskBinding{
		{Spec: syncSpec, Worker: services.SyncWorker(syncOrchestrator)},
		{Spec: uploadSpec, Worker: services.UploadWorker(uploadAgent, queueService)},
	}

	return s, nil
}
