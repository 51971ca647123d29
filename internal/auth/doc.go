// Package auth provides API key middleware for the HTTP API.
package auth
