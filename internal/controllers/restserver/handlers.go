package restserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/chrissnell/ringbiomass/internal/allometry"
	"github.com/chrissnell/ringbiomass/internal/app"
	"github.com/chrissnell/ringbiomass/internal/correction"
	"github.com/chrissnell/ringbiomass/internal/export"
	"github.com/chrissnell/ringbiomass/internal/log"
	"github.com/chrissnell/ringbiomass/internal/rings"
	"github.com/chrissnell/ringbiomass/pkg/responseformat"
)

// maxRequestBytes caps the size of a reconstruction request body.
const maxRequestBytes = 16 << 20

// maxTrials caps the random initial-width trials one request may ask for.
const maxTrials = 10000

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	pipeline  *app.Pipeline
	resolver  *allometry.Resolver
	formatter *responseformat.Formatter
	logger    *zap.SugaredLogger
}

// NewHandlers creates a new handlers instance
func NewHandlers(pipeline *app.Pipeline, resolver *allometry.Resolver, logger *zap.SugaredLogger) *Handlers {
	return &Handlers{
		pipeline:  pipeline,
		resolver:  resolver,
		formatter: responseformat.NewFormatter(),
		logger:    logger,
	}
}

// Reconstruct runs the pipeline over the samples in the request body and returns the
// complete result bundle.
func (h *Handlers) Reconstruct(w http.ResponseWriter, req *http.Request) {
	var body ReconstructRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		h.writeError(w, req, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if len(body.Samples) == 0 {
		h.writeError(w, req, http.StatusBadRequest, errors.New("no samples in request"))
		return
	}
	if n := body.Corrections.InitialWidth.Trials; n > maxTrials {
		h.writeError(w, req, http.StatusBadRequest, fmt.Errorf("%d trials requested, at most %d allowed", n, maxTrials))
		return
	}

	site := rings.DefaultSite(body.Site.SiteID)
	if site.SiteID == "" {
		site.SiteID = "site"
	}
	if body.Site.Species != "" {
		site.Species = strings.ToUpper(body.Site.Species)
	}
	site.Region = body.Site.Region
	site.Latitude = body.Site.Latitude
	site.Longitude = body.Site.Longitude

	series := make([]rings.Series, len(body.Samples))
	for i, s := range body.Samples {
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("sample%d", i+1)
		}
		series[i] = rings.NewSeriesFromSlice(name, s.Start, s.Widths).Trim()
	}
	m := rings.NewMatrix(site.SiteID, series)

	cfg, err := body.Corrections.Build(site.SiteID)
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, err)
		return
	}

	res, chrons, err := h.pipeline.Process(req.Context(), m, site, cfg)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, correction.ErrInvalidConfig) || errors.Is(err, correction.ErrUnknownMode) {
			status = http.StatusBadRequest
		}
		h.writeError(w, req, status, err)
		return
	}

	runID := uuid.NewString()
	if err := h.formatter.WriteResponse(w, req, export.NewBundle(runID, res, chrons), map[string]string{"X-Run-ID": runID}); err != nil {
		h.logger.Errorf("error writing reconstruction response: %v", err)
	}
}

// GetSpecies returns the Latin name and the local equation for a species code.
func (h *Handlers) GetSpecies(w http.ResponseWriter, req *http.Request) {
	code := strings.ToUpper(mux.Vars(req)["code"])

	resp := SpeciesResponse{Code: code, Equation: allometry.Lookup(code)}
	resp.Formula = resp.Equation.String()
	if name, ok := allometry.LatinName(code); ok {
		resp.LatinName = name
		resp.Genus, resp.Epithet = allometry.SplitLatinName(name)
	}

	if resp.LatinName == "" && resp.Equation.Form == allometry.NoMatch {
		h.writeError(w, req, http.StatusNotFound, fmt.Errorf("unknown species code %s", code))
		return
	}
	if err := h.formatter.WriteResponse(w, req, resp, nil); err != nil {
		h.logger.Errorf("error writing species response: %v", err)
	}
}

// GetHTTPLogs returns the most recent requests served.
func (h *Handlers) GetHTTPLogs(w http.ResponseWriter, req *http.Request) {
	if err := h.formatter.WriteResponse(w, req, log.GetHTTPLogBuffer().Entries(), nil); err != nil {
		h.logger.Errorf("error writing log response: %v", err)
	}
}

// Health reports liveness along with resolver cache statistics.
func (h *Handlers) Health(w http.ResponseWriter, req *http.Request) {
	status := map[string]any{"status": "ok"}
	if h.resolver != nil {
		cache := h.resolver.Cache()
		status["cache"] = map[string]int64{
			"entries": int64(cache.Len()),
			"hits":    cache.Hits(),
			"misses":  cache.Misses(),
		}
	}
	if err := h.formatter.WriteResponse(w, req, status, nil); err != nil {
		h.logger.Errorf("error writing health response: %v", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, req *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Errorf("%s %s: %v", req.Method, req.URL.Path, err)
	} else {
		h.logger.Debugf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	if werr := h.formatter.WriteStatus(w, req, status, errorResponse{Error: err.Error()}, nil); werr != nil {
		h.logger.Errorf("error writing error response: %v", werr)
	}
}
