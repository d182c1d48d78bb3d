// Package driving defines the inbound ports of the ingestion core.
// Callers (the CLI, an external scheduler) drive the engine through these
// interfaces.
package driving
