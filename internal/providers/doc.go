// Package providers contains the source adapters that pull candidate
// facility records from external providers, plus the shared field-probing
// helper for their inconsistently named payloads. Untyped provider shapes
// never cross the adapter boundary: every adapter emits domain.RawRecord.
package providers
