package domain

// TrustLevel is a qualitative reliability ranking of a data source.
// It seeds the confidence score of every record the source produces.
type TrustLevel string

const (
	TrustHigh   TrustLevel = "high"
	TrustMedium TrustLevel = "medium"
	TrustLow    TrustLevel = "low"
)

// BaseConfidence returns the confidence score seeded by the trust level.
// Unrecognised levels sit between medium and low.
func (t TrustLevel) BaseConfidence() float64 {
	switch t {
	case TrustHigh:
		return 0.8
	case TrustMedium:
		return 0.6
	case TrustLow:
		return 0.4
	default:
		return 0.5
	}
}

// Seed is a statically configured facility used by seed-type sources.
type Seed struct {
	Name       string  `toml:"name"`
	Latitude   float64 `toml:"latitude"`
	Longitude  float64 `toml:"longitude"`
	Access     string  `toml:"access"`
	Gender     string  `toml:"gender"`
	Wheelchair string  `toml:"wheelchair"`
	Operator   string  `toml:"operator"`
}

// SourceConfig describes one configured data source.
type SourceConfig struct {
	// Name is the unique, human-readable source name.
	Name string `toml:"name"`

	// Type identifies the adapter family (overpass, government, regional, seed).
	Type string `toml:"type"`

	// Source is the provenance stamp applied to records from this source.
	Source Source `toml:"source"`

	// Trust seeds the confidence score of records from this source.
	Trust TrustLevel `toml:"trust"`

	// Priority is the fetch ordering rank; lower ranks are fetched first.
	Priority int `toml:"priority"`

	// Endpoint is the query URL template. Supports a {{city}} placeholder.
	Endpoint string `toml:"endpoint"`

	// Query is the request body template for sources that take one
	// (Overpass QL). Supports a {{bbox}} placeholder.
	Query string `toml:"query"`

	// APIToken is an optional static bearer token for authenticated portals.
	APIToken string `toml:"api_token"`

	// Seeds is the static record set for seed-type sources.
	Seeds []Seed `toml:"seeds"`
}

// Bounds is a geographic bounding box in decimal degrees.
type Bounds struct {
	South float64
	West  float64
	North float64
	East  float64
}
