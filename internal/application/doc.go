// Package application provides application initialization and dependency wiring.
// It loads the initial settings and builds the snapshot store, reloader,
// handlers, routers and HTTP server, keeping the main package focused on
// CLI parsing and orchestration.
package application
