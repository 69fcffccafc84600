// Package connectivity implements driven.ConnectivityObserver.
//
// NetObserver polls the host's network interfaces. Static holds a fixed
// state that callers can flip, for --offline mode and tests.
package connectivity
