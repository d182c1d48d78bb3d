// Package domain contains the core business entities for facility ingestion.
// It has no dependencies on other internal packages.
package domain
