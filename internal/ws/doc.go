// Package ws fans home model change events out to shell UI observers
// over WebSocket.
package ws
