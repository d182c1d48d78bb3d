package domain

// RawRecord is an adapter's output before normalisation.
// Adapters resolve provider-specific field spellings; the normaliser owns
// numeric coercion and validation, so coordinates stay loosely typed here.
// RawRecords are ephemeral and discarded once normalised.
type RawRecord struct {
	// Name is the facility name, nil when the provider supplied none.
	Name *string

	// Latitude is the raw latitude value: float64, string, json.Number or nil.
	Latitude any

	// Longitude is the raw longitude value: float64, string, json.Number or nil.
	Longitude any

	// Access is the raw access token (e.g. "yes", "customers").
	Access string

	// Gender is the raw gender token.
	Gender string

	// Wheelchair is the raw wheelchair-accessibility token.
	Wheelchair string

	// Operator is the operating organisation, nil when unknown.
	Operator *string

	// Verified marks records the provider itself vouches for.
	Verified bool
}
