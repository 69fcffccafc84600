// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Local mutations and the sync cycle share a ChangeGate so the pending
// change queue is never read and written concurrently.
package services
