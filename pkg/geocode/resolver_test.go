package geocode

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient returns scripted results per query and records call order.
type fakeClient struct {
	results map[string]*Result
	errs    map[string]error
	calls   []string
}

func (f *fakeClient) Geocode(_ context.Context, query string) (*Result, error) {
	f.calls = append(f.calls, query)
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	if r, ok := f.results[query]; ok {
		return r, nil
	}
	return &Result{Matched: false}, nil
}

func TestResolver_OriginalMatch(t *testing.T) {
	client := &fakeClient{results: map[string]*Result{
		"10115 Berlin, Deutschland": {Latitude: 52.532, Longitude: 13.385, Matched: true},
	}}

	outcome := NewResolver(client).Resolve(context.Background(), "10115 Berlin, Deutschland")

	assert.Equal(t, SourceOriginal, outcome.Source)
	assert.True(t, outcome.Matched)
	assert.InDelta(t, 52.532, outcome.Latitude, 1e-9)
	require.Len(t, client.calls, 1, "a first-query match must not issue a fallback query")
}

func TestResolver_FallbackOrdering(t *testing.T) {
	client := &fakeClient{results: map[string]*Result{
		"Berlin, Deutschland": {Latitude: 52.52, Longitude: 13.405, Matched: true},
	}}

	outcome := NewResolver(client).Resolve(context.Background(), "99999 Berlin, Deutschland")

	assert.Equal(t, SourceFallback, outcome.Source)
	assert.True(t, outcome.Matched)
	require.Equal(t, []string{
		"99999 Berlin, Deutschland",
		"Berlin, Deutschland",
	}, client.calls, "the full address must be queried first, the degraded query second")
}

func TestResolver_BothQueriesMiss(t *testing.T) {
	client := &fakeClient{}

	outcome := NewResolver(client).Resolve(context.Background(), "99999 Atlantis, Deutschland")

	assert.Equal(t, SourceFailed, outcome.Source)
	assert.False(t, outcome.Matched)
	assert.Len(t, client.calls, 2)
}

func TestResolver_NoSeparatorNoFallback(t *testing.T) {
	client := &fakeClient{}

	outcome := NewResolver(client).Resolve(context.Background(), "Atlantis")

	assert.Equal(t, SourceFailed, outcome.Source)
	require.Len(t, client.calls, 1, "an address without a separator must not trigger a fallback query")
}

func TestResolver_ErrorBecomesException(t *testing.T) {
	client := &fakeClient{errs: map[string]error{
		"10115 Berlin, Deutschland": eris.New("nominatim unreachable"),
	}}

	outcome := NewResolver(client).Resolve(context.Background(), "10115 Berlin, Deutschland")

	assert.Equal(t, SourceException, outcome.Source)
	assert.False(t, outcome.Matched)
}

func TestResolver_FallbackErrorBecomesException(t *testing.T) {
	client := &fakeClient{errs: map[string]error{
		"Berlin, Deutschland": eris.New("nominatim unreachable"),
	}}

	outcome := NewResolver(client).Resolve(context.Background(), "99999 Berlin, Deutschland")

	assert.Equal(t, SourceException, outcome.Source)
}

func TestFallbackQuery(t *testing.T) {
	tests := []struct {
		name  string
		addr  string
		want  string
		found bool
	}{
		{"zip and municipality", "10115 Berlin, Deutschland", "Berlin, Deutschland", true},
		{"multi word municipality", "60306 Frankfurt am Main, Deutschland", "Frankfurt am Main, Deutschland", true},
		{"no separator", "Berlin", "", false},
		{"no separator with suffix", "Berlin, Deutschland", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := fallbackQuery(tt.addr)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSource_Success(t *testing.T) {
	assert.True(t, SourceOriginal.Success())
	assert.True(t, SourceFallback.Success())
	assert.False(t, SourceFailed.Success())
	assert.False(t, SourceException.Success())
}
