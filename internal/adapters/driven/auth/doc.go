// Package auth provides token providers for the document server API.
package auth
