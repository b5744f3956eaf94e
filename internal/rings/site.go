package rings

import "fmt"

// DefaultSpecies is used when a site has no metadata.
const DefaultSpecies = "PIST"

// SiteContext is the immutable per-site metadata that drives species-specific equations.
// Latitude and Longitude are nil when unknown.
type SiteContext struct {
	SiteID    string
	Species   string
	Region    string
	Latitude  *float64
	Longitude *float64
}

// DefaultSite returns the fallback context for a site without metadata.
func DefaultSite(siteID string) SiteContext {
	return SiteContext{SiteID: siteID, Species: DefaultSpecies}
}

// HasCoordinates reports whether both latitude and longitude are known.
func (s SiteContext) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

func (s SiteContext) String() string {
	if !s.HasCoordinates() {
		return fmt.Sprintf("%s[%s region=%s]", s.SiteID, s.Species, s.Region)
	}
	return fmt.Sprintf("%s[%s region=%s lat=%.4f lon=%.4f]", s.SiteID, s.Species, s.Region, *s.Latitude, *s.Longitude)
}

// Float returns a pointer to v. Handy for building SiteContext literals.
func Float(v float64) *float64 {
	return &v
}
