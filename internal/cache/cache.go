// Package cache is the durable ledger of geocoding results. Addresses
// resolved once are never re-queried; failures are recorded for
// inspection but retried on the next run.
package cache

import (
	"context"

	"github.com/egon-data/mastr-geocoding/pkg/geocode"
)

// Entry is one persisted geocoding result. Coordinates are nil for
// entries whose lookup failed.
type Entry struct {
	ZipAndMunicipality string
	Source             geocode.Source
	Latitude           *float64
	Longitude          *float64
	Altitude           *float64
}

// Success reports whether the entry carries a resolved coordinate.
func (e Entry) Success() bool {
	return e.Source.Success() && e.Latitude != nil && e.Longitude != nil
}

// FromOutcome converts a resolver outcome into a cache entry.
func FromOutcome(o geocode.Outcome) Entry {
	e := Entry{
		ZipAndMunicipality: o.Address,
		Source:             o.Source,
	}
	if o.Matched {
		lat, lon, alt := o.Latitude, o.Longitude, o.Altitude
		e.Latitude = &lat
		e.Longitude = &lon
		e.Altitude = &alt
	}
	return e
}

// Store persists the full entry set between runs. Load tolerates a
// missing backing store; Persist replaces the stored set wholesale.
type Store interface {
	Load(ctx context.Context) ([]Entry, error)
	Persist(ctx context.Context, entries []Entry) error
	Close() error
}

// Successes filters entries down to those with resolved coordinates.
// Failed and exception entries are dropped so they get retried.
func Successes(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Success() {
			out = append(out, e)
		}
	}
	return out
}

// Merge unions cached and fresh entries keyed by address, fresh winning.
// Order is cached entries first, then fresh entries for new addresses,
// both in their original order.
func Merge(cached, fresh []Entry) []Entry {
	byAddr := make(map[string]int, len(cached))
	out := make([]Entry, 0, len(cached)+len(fresh))

	for _, e := range cached {
		byAddr[e.ZipAndMunicipality] = len(out)
		out = append(out, e)
	}
	for _, e := range fresh {
		if i, ok := byAddr[e.ZipAndMunicipality]; ok {
			out[i] = e
			continue
		}
		byAddr[e.ZipAndMunicipality] = len(out)
		out = append(out, e)
	}
	return out
}
