package allometry

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"
)

// Coordinates locate a site. The equation service uses them as a location prior.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// DefaultCoordinates is used when a site has no recorded location.
var DefaultCoordinates = Coordinates{Latitude: 39.2, Longitude: -76.8}

// EquationSource is a general cross-species biomass equation service. Estimate returns
// one value per diameter; NaN marks a value the service could not produce.
type EquationSource interface {
	Estimate(ctx context.Context, latinName string, coords Coordinates, dbh []float64) ([]float64, error)
}

// Resolver converts diameters to biomass. It asks the EquationSource first and falls back
// to the local equation table value by value.
type Resolver struct {
	source EquationSource
	cache  *Cache
	logger *zap.SugaredLogger
}

// NewResolver creates a Resolver. source may be nil, in which case only the local table
// is used. A nil cache gets a fresh one.
func NewResolver(source EquationSource, cache *Cache, logger *zap.SugaredLogger) *Resolver {
	if cache == nil {
		cache = NewCache()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Resolver{source: source, cache: cache, logger: logger}
}

// Cache returns the resolver's memoization cache.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Biomass returns one biomass value per diameter (cm) for species at the given location.
// The output always has the same length as dbh. Missing diameters map to NaN; species
// with no usable equation map to FailureValue.
func (r *Resolver) Biomass(ctx context.Context, species string, lat, lon *float64, dbh []float64) []float64 {
	if len(dbh) == 0 {
		return []float64{}
	}
	species = strings.ToUpper(strings.TrimSpace(species))
	coords := resolveCoordinates(lat, lon)

	prepared := make([]float64, len(dbh))
	for i, d := range dbh {
		switch {
		case math.IsNaN(d):
			prepared[i] = math.NaN()
		case d <= 0:
			prepared[i] = MinDiameter
		default:
			prepared[i] = d
		}
	}

	key := cacheKey(species, coords, prepared)
	return r.cache.Do(key, func() []float64 {
		return r.compute(ctx, species, coords, prepared)
	})
}

// BiomassOne is the scalar form of Biomass.
func (r *Resolver) BiomassOne(ctx context.Context, species string, lat, lon *float64, dbh float64) float64 {
	return r.Biomass(ctx, species, lat, lon, []float64{dbh})[0]
}

func (r *Resolver) compute(ctx context.Context, species string, coords Coordinates, dbh []float64) []float64 {
	out := r.estimate(ctx, species, coords, dbh)

	var eq Equation
	var looked bool
	for i, d := range dbh {
		if math.IsNaN(d) {
			out[i] = math.NaN()
			continue
		}
		if !math.IsNaN(out[i]) && !math.IsInf(out[i], 0) {
			continue
		}
		if !looked {
			eq = Lookup(species)
			looked = true
			if eq.Form == NoMatch {
				r.logger.Warnf("no biomass equation for species %q, returning %v", species, FailureValue)
			}
		}
		out[i] = eq.Evaluate(d)
	}
	return out
}

// estimate queries the source and returns a slice of len(dbh), NaN wherever the source
// produced nothing.
func (r *Resolver) estimate(ctx context.Context, species string, coords Coordinates, dbh []float64) []float64 {
	out := make([]float64, len(dbh))
	for i := range out {
		out[i] = math.NaN()
	}
	if r.source == nil {
		return out
	}
	latin, ok := LatinName(species)
	if !ok {
		r.logger.Debugf("species %q has no Latin name mapping, using local equations", species)
		return out
	}

	// The service needs a usable value at every position; missing ones are masked after.
	query := make([]float64, len(dbh))
	for i, d := range dbh {
		if math.IsNaN(d) {
			query[i] = MinDiameter
		} else {
			query[i] = d
		}
	}

	values, err := r.source.Estimate(ctx, latin, coords, query)
	if err != nil {
		r.logger.Warnf("equation service failed for %s (%s): %v", species, latin, err)
		return out
	}
	if len(values) != len(dbh) {
		r.logger.Warnf("equation service returned %d values for %d diameters of %s, padding with missing values",
			len(values), len(dbh), species)
	}
	copy(out, values)
	return out
}

func resolveCoordinates(lat, lon *float64) Coordinates {
	c := DefaultCoordinates
	if lat != nil && !math.IsNaN(*lat) {
		c.Latitude = *lat
	}
	if lon != nil && !math.IsNaN(*lon) {
		c.Longitude = *lon
	}
	return c
}
