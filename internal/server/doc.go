// Package server exposes the HTTP surface: the initial page, a JSON state
// endpoint and the WebSocket endpoint on the public listener, and health
// and metrics on the operational listener.
package server
