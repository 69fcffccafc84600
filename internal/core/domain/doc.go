// Package domain defines the core business entities for docsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - CachedEntity: A locally mirrored server record
//   - PendingChange: A local mutation awaiting push
//   - PendingUpload: A captured document awaiting upload
//   - ServerStatus: The last known server reachability
//   - ScheduledTask: A named background task
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
