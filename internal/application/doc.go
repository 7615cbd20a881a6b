// Package application provides application initialization and dependency wiring.
// It encapsulates the creation of the catalog store and its persister, the
// result cache, the planner, handlers, routers and the HTTP server, making the
// main packages cleaner and more focused on CLI parsing and orchestration.
package application
