// Package allodb is a client for an HTTP service exposing the generalized allodb
// biomass equations.
package allodb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/chrissnell/ringbiomass/internal/allometry"
)

// DefaultTimeout bounds a single biomass request.
const DefaultTimeout = 25 * time.Second

// Client calls POST {BaseURL}/biomass. It satisfies allometry.EquationSource.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a Client for baseURL with the given request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type biomassRequest struct {
	Genus   string     `json:"genus"`
	Species string     `json:"species"`
	Coords  [2]float64 `json:"coords"`
	DBH     []float64  `json:"dbh"`
}

type biomassResponse struct {
	AGB []*float64 `json:"agb"`
}

// Estimate returns aboveground biomass for each diameter. Null entries in the response
// become NaN.
func (c *Client) Estimate(ctx context.Context, latinName string, coords allometry.Coordinates, dbh []float64) ([]float64, error) {
	genus, species := allometry.SplitLatinName(latinName)
	if genus == "" {
		return nil, fmt.Errorf("empty latin name")
	}

	body, err := json.Marshal(biomassRequest{
		Genus:   genus,
		Species: species,
		Coords:  [2]float64{coords.Longitude, coords.Latitude},
		DBH:     dbh,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal biomass req: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/biomass", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("allodb call failed: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("allodb non-2xx: %s, body: %s", resp.Status, string(data))
	}

	var out biomassResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode allodb resp: %w", err)
	}

	agb := make([]float64, len(out.AGB))
	for i, v := range out.AGB {
		if v == nil {
			agb[i] = math.NaN()
		} else {
			agb[i] = *v
		}
	}
	return agb, nil
}
