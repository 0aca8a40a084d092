package geocode

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// CountrySuffix is appended to every address handed to the resolver.
// MaStR records cover Germany only.
const CountrySuffix = ", Deutschland"

// Source records how an address was (or was not) resolved.
type Source string

const (
	// SourceOriginal marks a match on the full address string.
	SourceOriginal Source = "original"
	// SourceFallback marks a match after dropping the zip code.
	SourceFallback Source = "fallback"
	// SourceFailed marks an address neither query could match.
	SourceFailed Source = "failed"
	// SourceException marks an address whose lookup errored out.
	SourceException Source = "exception"
)

// Success reports whether the source represents a resolved coordinate.
func (s Source) Success() bool {
	return s == SourceOriginal || s == SourceFallback
}

// Outcome is the result of resolving one address.
type Outcome struct {
	Address   string
	Source    Source
	Latitude  float64
	Longitude float64
	Altitude  float64
	Matched   bool
}

// Resolver resolves a single address, degrading to a zip-less query when
// the full string yields no match.
type Resolver struct {
	client Client
	log    *zap.Logger
}

// NewResolver creates a Resolver on top of the given lookup client.
func NewResolver(client Client) *Resolver {
	return &Resolver{
		client: client,
		log:    zap.L().With(zap.String("component", "geocode.resolver")),
	}
}

// Resolve produces exactly one Outcome for the address. Lookup errors are
// caught here and become SourceException; they never propagate.
func (r *Resolver) Resolve(ctx context.Context, addr string) Outcome {
	result, err := r.client.Geocode(ctx, addr)
	if err != nil {
		r.log.Warn("lookup raised an error",
			zap.String("address", addr),
			zap.Error(err),
		)
		return Outcome{Address: addr, Source: SourceException}
	}
	if result.Matched {
		return outcomeFrom(addr, SourceOriginal, result)
	}

	// Registry addresses encode zip codes inconsistently; retrying with
	// just the municipality recovers a fraction of the misses.
	query, ok := fallbackQuery(addr)
	if !ok {
		return Outcome{Address: addr, Source: SourceFailed}
	}

	r.log.Debug("no match for full address, trying fallback",
		zap.String("address", addr),
		zap.String("fallback", query),
	)

	result, err = r.client.Geocode(ctx, query)
	if err != nil {
		r.log.Warn("fallback lookup raised an error",
			zap.String("address", addr),
			zap.String("fallback", query),
			zap.Error(err),
		)
		return Outcome{Address: addr, Source: SourceException}
	}
	if result.Matched {
		return outcomeFrom(addr, SourceFallback, result)
	}

	return Outcome{Address: addr, Source: SourceFailed}
}

// fallbackQuery drops the leading zip token and re-appends the country
// suffix. It returns false when the address has no zip/municipality
// separator to strip at.
func fallbackQuery(addr string) (string, bool) {
	base := strings.TrimSuffix(addr, CountrySuffix)
	i := strings.Index(base, " ")
	if i < 0 {
		return "", false
	}
	return base[i+1:] + CountrySuffix, true
}

func outcomeFrom(addr string, source Source, result *Result) Outcome {
	return Outcome{
		Address:   addr,
		Source:    source,
		Latitude:  result.Latitude,
		Longitude: result.Longitude,
		Altitude:  result.Altitude,
		Matched:   true,
	}
}
