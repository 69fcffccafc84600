// Package paperless implements driven.RemoteAPI against a Paperless-style
// document server REST API.
//
// Requests are authenticated through an oauth2 transport fed by a
// driven.TokenProvider, throttled by a token bucket, and idempotent calls
// are retried on transient failures.
package paperless
