package government

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openamenity/amenity-ingest/internal/core/domain"
	"github.com/openamenity/amenity-ingest/internal/core/ports/driven"
)

type stubFetcher struct {
	payload []byte
	err     error
	gotURL  string
	gotOpts driven.FetchOptions
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string, opts driven.FetchOptions) ([]byte, error) {
	f.gotURL = rawURL
	f.gotOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func testConfig() domain.SourceConfig {
	return domain.SourceConfig{
		Name:     "city-portal",
		Type:     "government",
		Source:   domain.SourceGovernment,
		Endpoint: "https://data.example.gov/facilities?city={{city}}",
	}
}

func TestFetch_SubstitutesAndEscapesCity(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte(`[]`)}

	_, err := New(testConfig(), fetcher).Fetch(context.Background(), domain.Bounds{}, "new york")
	require.NoError(t, err)

	assert.Equal(t, "https://data.example.gov/facilities?city=new+york", fetcher.gotURL)
}

func TestFetch_AttachesBearerTokenWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.APIToken = "secret-token"
	fetcher := &stubFetcher{payload: []byte(`[]`)}

	_, err := New(cfg, fetcher).Fetch(context.Background(), domain.Bounds{}, "mumbai")
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", fetcher.gotOpts.Header.Get("Authorization"))
}

func TestFetch_NoAuthorizationHeaderWithoutToken(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte(`[]`)}

	_, err := New(testConfig(), fetcher).Fetch(context.Background(), domain.Bounds{}, "mumbai")
	require.NoError(t, err)

	assert.Empty(t, fetcher.gotOpts.Header.Get("Authorization"))
}

func TestFetch_ParsesPortalFields(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte(`[
		{
			"facility_name": "Ward 12 Public Toilet",
			"gis_latitude": "18.9701",
			"gis_longitude": "72.8203",
			"access_type": "public",
			"gender_access": "unisex",
			"ada_accessible": "yes",
			"managed_by": "Municipal Corporation",
			"verified": "yes"
		}
	]`)}

	records, err := New(testConfig(), fetcher).Fetch(context.Background(), domain.Bounds{}, "mumbai")
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	require.NotNil(t, record.Name)
	assert.Equal(t, "Ward 12 Public Toilet", *record.Name)
	assert.Equal(t, "18.9701", record.Latitude, "string coordinates pass through untouched")
	assert.Equal(t, "72.8203", record.Longitude)
	assert.Equal(t, "public", record.Access)
	assert.Equal(t, "unisex", record.Gender)
	assert.Equal(t, "yes", record.Wheelchair)
	require.NotNil(t, record.Operator)
	assert.Equal(t, "Municipal Corporation", *record.Operator)
	assert.True(t, record.Verified)
}

func TestFetch_EnvelopeShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "bare array", payload: `[{"lat": 18.97, "lon": 72.82}]`},
		{name: "records envelope", payload: `{"records": [{"lat": 18.97, "lon": 72.82}]}`},
		{name: "data envelope", payload: `{"data": [{"lat": 18.97, "lon": 72.82}]}`},
		{name: "results envelope", payload: `{"results": [{"lat": 18.97, "lon": 72.82}]}`},
		{name: "items envelope", payload: `{"items": [{"lat": 18.97, "lon": 72.82}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &stubFetcher{payload: []byte(tt.payload)}

			records, err := New(testConfig(), fetcher).Fetch(context.Background(), domain.Bounds{}, "mumbai")
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, 18.97, records[0].Latitude)
		})
	}
}

func TestFetch_NonObjectEntriesAreSkipped(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte(
		`{"records": [{"lat": 18.97, "lon": 72.82}, "corrupt row", 42]}`)}

	records, err := New(testConfig(), fetcher).Fetch(context.Background(), domain.Bounds{}, "mumbai")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFetch_UnusablePayloadFailsSource(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `<html>maintenance</html>`},
		{name: "no recognised list", payload: `{"count": 3}`},
		{name: "list is not an array", payload: `{"records": "none"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &stubFetcher{payload: []byte(tt.payload)}

			records, err := New(testConfig(), fetcher).Fetch(context.Background(), domain.Bounds{}, "mumbai")
			assert.Nil(t, records)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
		})
	}
}
