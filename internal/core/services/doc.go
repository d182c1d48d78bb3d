// Package services implements the ingestion core: the deduplication engine
// and the orchestrator that drives sources, normalisation and persistence.
package services
