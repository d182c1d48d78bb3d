package domain

import (
	"strings"
	"time"
)

// Source identifies the provider family a record originated from.
type Source string

const (
	// SourceOSM is the OpenStreetMap Overpass API.
	SourceOSM Source = "OSM"

	// SourcePlanetOSM is a planet-scale Overpass mirror.
	SourcePlanetOSM Source = "PLANET_OSM"

	// SourceGovernment is a municipal or national open-data portal.
	SourceGovernment Source = "GOVERNMENT"

	// SourceManual is a curated static seed set.
	SourceManual Source = "MANUAL"

	// SourceUser is an in-app user submission.
	SourceUser Source = "USER"

	// SourceRegional is a regional aggregator feed.
	SourceRegional Source = "REGIONAL"
)

// Priority returns the merge priority of the source.
// Higher-priority records win conflicts during deduplication.
// Unrecognised sources rank below every known source.
func (s Source) Priority() int {
	switch s {
	case SourceUser:
		return 5
	case SourceGovernment:
		return 4
	case SourceOSM, SourcePlanetOSM:
		return 3
	case SourceManual:
		return 2
	default:
		return 1
	}
}

// Access describes who may use a facility.
type Access string

const (
	AccessPublic    Access = "public"
	AccessCustomers Access = "customers"
	AccessPrivate   Access = "private"
	AccessUnknown   Access = "unknown"
)

// ParseAccess maps a provider token to the Access enumeration.
// Unrecognised tokens map to AccessUnknown.
func ParseAccess(token string) Access {
	switch normaliseToken(token) {
	case "public", "yes", "permissive":
		return AccessPublic
	case "customers":
		return AccessCustomers
	case "private", "no":
		return AccessPrivate
	default:
		return AccessUnknown
	}
}

// Gender describes which genders a facility serves.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnisex  Gender = "unisex"
	GenderUnknown Gender = "unknown"
)

// ParseGender maps a provider token to the Gender enumeration.
// Unrecognised tokens map to GenderUnknown.
func ParseGender(token string) Gender {
	switch normaliseToken(token) {
	case "male", "m":
		return GenderMale
	case "female", "f":
		return GenderFemale
	case "unisex", "all":
		return GenderUnisex
	default:
		return GenderUnknown
	}
}

// Wheelchair describes wheelchair accessibility.
type Wheelchair string

const (
	WheelchairYes     Wheelchair = "yes"
	WheelchairNo      Wheelchair = "no"
	WheelchairUnknown Wheelchair = "unknown"
)

// ParseWheelchair maps a provider token to the Wheelchair enumeration.
// Unrecognised tokens map to WheelchairUnknown.
func ParseWheelchair(token string) Wheelchair {
	switch normaliseToken(token) {
	case "yes", "true", "limited", "designated":
		return WheelchairYes
	case "no", "false":
		return WheelchairNo
	default:
		return WheelchairUnknown
	}
}

func normaliseToken(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}

// Record is the canonical facility record every source is normalised into.
// Coordinates are rounded to 6 decimal places; Confidence is always in [0,1].
type Record struct {
	// ID is the unique identifier for the record.
	ID string

	// Name is the facility name, nil when the provider supplied none.
	Name *string

	// Latitude is in decimal degrees, within [-90, 90].
	Latitude float64

	// Longitude is in decimal degrees, within [-180, 180].
	Longitude float64

	// Source identifies the provider family that produced the record.
	Source Source

	// Access describes who may use the facility.
	Access Access

	// Gender describes which genders the facility serves.
	Gender Gender

	// Wheelchair describes wheelchair accessibility.
	Wheelchair Wheelchair

	// Operator is the operating organisation, nil when unknown.
	Operator *string

	// Verified marks records confirmed by a trusted reviewer.
	Verified bool

	// Confidence is the believed accuracy/completeness of the record, in [0,1].
	Confidence float64

	// UpdatedAt is when the record was produced or last merged.
	UpdatedAt time.Time
}

// Facilities derives the facilities list exposed to the inventory projection
// from the access, gender and wheelchair flags.
func (r *Record) Facilities() []string {
	var facilities []string
	if r.Wheelchair == WheelchairYes {
		facilities = append(facilities, "wheelchair_accessible")
	}
	switch r.Gender {
	case GenderMale:
		facilities = append(facilities, "male")
	case GenderFemale:
		facilities = append(facilities, "female")
	case GenderUnisex:
		facilities = append(facilities, "male", "female", "unisex")
	}
	if r.Access == AccessPublic {
		facilities = append(facilities, "public_access")
	}
	return facilities
}

// Metadata builds the metadata sub-object stored alongside the inventory row.
func (r *Record) Metadata() map[string]any {
	meta := map[string]any{
		"confidence": r.Confidence,
		"access":     string(r.Access),
		"gender":     string(r.Gender),
	}
	if r.Operator != nil {
		meta["operator"] = *r.Operator
	}
	return meta
}
