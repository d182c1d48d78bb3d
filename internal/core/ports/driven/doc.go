// Package driven defines the outbound ports of the ingestion core.
// Adapters (providers, storage, config, fetch) implement these interfaces.
package driven
