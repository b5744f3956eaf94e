package restserver

import (
	"github.com/chrissnell/ringbiomass/internal/allometry"
	"github.com/chrissnell/ringbiomass/pkg/config"
	"github.com/chrissnell/ringbiomass/pkg/responseformat"
)

// ReconstructRequest is the body of POST /api/v1/reconstruct. Widths are in mm; null
// marks a missing year.
type ReconstructRequest struct {
	Site        SiteRequest            `json:"site"`
	Samples     []SampleRequest        `json:"samples"`
	Corrections config.CorrectionsData `json:"corrections"`
}

type SiteRequest struct {
	SiteID    string   `json:"site_id"`
	Species   string   `json:"species"`
	Region    string   `json:"region,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type SampleRequest struct {
	Name   string                  `json:"name"`
	Start  int                     `json:"start"`
	Widths responseformat.Float64s `json:"widths"`
}

// SpeciesResponse describes how a species code resolves.
type SpeciesResponse struct {
	Code      string             `json:"code"`
	LatinName string             `json:"latin_name,omitempty"`
	Genus     string             `json:"genus,omitempty"`
	Epithet   string             `json:"epithet,omitempty"`
	Equation  allometry.Equation `json:"equation"`
	Formula   string             `json:"formula"`
}

type errorResponse struct {
	Error string `json:"error"`
}
