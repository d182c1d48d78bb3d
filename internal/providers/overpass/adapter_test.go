package overpass

import (
	"context"
	"net/http"
	"net/url"
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

var testBounds = domain.Bounds{South: 18.9, West: 72.8, North: 19.0, East: 72.9}

func testConfig() domain.SourceConfig {
	return domain.SourceConfig{
		Name:     "osm-main",
		Type:     "overpass",
		Source:   domain.SourceOSM,
		Endpoint: "https://overpass-api.de/api/interpreter",
	}
}

func TestFetch_PostsQueryWithBoundingBox(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte(`{"elements":[]}`)}
	adapter := New(testConfig(), fetcher)

	records, err := adapter.Fetch(context.Background(), testBounds, "mumbai")
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.Equal(t, "https://overpass-api.de/api/interpreter", fetcher.gotURL)
	assert.Equal(t, http.MethodPost, fetcher.gotOpts.Method)
	assert.Equal(t, "application/x-www-form-urlencoded", fetcher.gotOpts.Header.Get("Content-Type"))

	body, err := url.QueryUnescape(fetcher.gotOpts.Body)
	require.NoError(t, err)
	assert.Contains(t, body, "data=")
	assert.Contains(t, body, `"amenity"="toilets"`)
	assert.Contains(t, body, "18.900000,72.800000,19.000000,72.900000", "{{bbox}} is substituted")
}

func TestFetch_CustomQueryTemplateIsUsed(t *testing.T) {
	cfg := testConfig()
	cfg.Query = `node["amenity"="drinking_water"]({{bbox}});out;`
	fetcher := &stubFetcher{payload: []byte(`{"elements":[]}`)}

	_, err := New(cfg, fetcher).Fetch(context.Background(), testBounds, "mumbai")
	require.NoError(t, err)

	body, err := url.QueryUnescape(fetcher.gotOpts.Body)
	require.NoError(t, err)
	assert.Contains(t, body, "drinking_water")
	assert.NotContains(t, body, "{{bbox}}")
}

func TestFetch_ParsesElements(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte(`{
		"elements": [
			{
				"type": "node", "id": 1, "lat": 18.97, "lon": 72.82,
				"tags": {
					"name": "Station West",
					"access": "yes",
					"wheelchair": "yes",
					"male": "yes",
					"female": "yes",
					"operator": "BMC"
				}
			},
			{"type": "node", "id": 2, "lat": 18.98, "lon": 72.83}
		]
	}`)}

	records, err := New(testConfig(), fetcher).Fetch(context.Background(), testBounds, "mumbai")
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	require.NotNil(t, first.Name)
	assert.Equal(t, "Station West", *first.Name)
	assert.Equal(t, 18.97, first.Latitude)
	assert.Equal(t, 72.82, first.Longitude)
	assert.Equal(t, "yes", first.Access)
	assert.Equal(t, "unisex", first.Gender, "male+female tags collapse to unisex")
	assert.Equal(t, "yes", first.Wheelchair)
	require.NotNil(t, first.Operator)
	assert.Equal(t, "BMC", *first.Operator)

	// Tagless node still yields a record; validation happens downstream.
	second := records[1]
	assert.Nil(t, second.Name)
	assert.Equal(t, 18.98, second.Latitude)
	assert.Empty(t, second.Access)
}

func TestFetch_GenderDerivation(t *testing.T) {
	tests := []struct {
		name string
		tags string
		want string
	}{
		{name: "explicit gender tag wins", tags: `{"gender":"female","male":"yes"}`, want: "female"},
		{name: "unisex tag", tags: `{"unisex":"yes"}`, want: "unisex"},
		{name: "male only", tags: `{"male":"yes"}`, want: "male"},
		{name: "female only", tags: `{"female":"yes"}`, want: "female"},
		{name: "no gender tagging", tags: `{}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &stubFetcher{payload: []byte(
				`{"elements":[{"lat":18.97,"lon":72.82,"tags":` + tt.tags + `}]}`)}

			records, err := New(testConfig(), fetcher).Fetch(context.Background(), testBounds, "mumbai")
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, tt.want, records[0].Gender)
		})
	}
}

func TestFetch_UnparseablePayloadFailsSource(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte(`<html>rate limited</html>`)}

	records, err := New(testConfig(), fetcher).Fetch(context.Background(), testBounds, "mumbai")
	assert.Nil(t, records)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestFetch_TransportErrorPropagates(t *testing.T) {
	fetcher := &stubFetcher{err: domain.ErrSourceUnavailable}

	_, err := New(testConfig(), fetcher).Fetch(context.Background(), testBounds, "mumbai")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}
