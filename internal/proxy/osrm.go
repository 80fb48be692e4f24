package proxy

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/boddenberg/logistica-web-go/internal/domain"
)

// Coordinate is a point sent by the map widget.
type Coordinate struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// RouteRequest is the body of POST /api/osrm/route.
type RouteRequest struct {
	Coords []Coordinate `json:"coords"`
}

// ParseRouteRequest validates the body locally; nothing reaches OSRM unless
// at least two valid coordinates are present.
func ParseRouteRequest(body []byte) (*RouteRequest, error) {
	var req RouteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &domain.ErrValidation{Field: "coords", Message: "JSON inválido"}
	}
	if len(req.Coords) < 2 {
		return nil, &domain.ErrValidation{Field: "coords", Message: "São necessárias pelo menos 2 coordenadas"}
	}
	for i, c := range req.Coords {
		if c.Lat == nil || c.Lng == nil || !validDegrees(*c.Lat, 90) || !validDegrees(*c.Lng, 180) {
			return nil, &domain.ErrValidation{Field: "coords", Message: fmt.Sprintf("Coordenada inválida na posição %d", i)}
		}
	}
	return &req, nil
}

func validDegrees(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -limit && v <= limit
}

// Target builds the OSRM driving route URL (OSRM expects lng,lat pairs).
func (r *RouteRequest) Target(baseURL string) string {
	pairs := make([]string, 0, len(r.Coords))
	for _, c := range r.Coords {
		pairs = append(pairs,
			strconv.FormatFloat(*c.Lng, 'f', -1, 64)+","+strconv.FormatFloat(*c.Lat, 'f', -1, 64))
	}
	return strings.TrimRight(baseURL, "/") + "/route/v1/driving/" + strings.Join(pairs, ";") +
		"?overview=full&geometries=geojson"
}
