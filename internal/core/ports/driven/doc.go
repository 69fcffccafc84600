// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - CacheStore: Local replica of the remote collections
//   - PendingChangeStore: Durable log of unpushed local mutations
//   - UploadQueue: Durable log of captured documents awaiting upload
//   - MetadataStore: Sync bookkeeping key/value pairs
//   - RemoteAPI: The document server's REST API
//   - ConnectivityObserver: OS network availability
//   - SchedulerStore: Scheduler state and run history
//   - ConfigStore: Application configuration
//   - TokenProvider: API token for the remote server
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
