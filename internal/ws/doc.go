// Package ws streams finished rounds and periodic status to websocket
// clients.
package ws
