package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// csvHeader matches the column layout the original field software reads
// back; keep the order stable.
var csvHeader = []string{"fid", "new_id", "ridge_id", "ridge_rank", "plant_rank", "is_inlier", "in_boundary", "x", "y"}

// WriteCSV writes records as CSV with a fixed header row.
func WriteCSV(w io.Writer, recs []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range recs {
		row := []string{
			strconv.FormatInt(r.OriginalID, 10),
			r.NewID,
			strconv.Itoa(r.RidgeID),
			strconv.Itoa(r.RidgeRank),
			strconv.Itoa(r.PlantRank),
			strconv.FormatBool(r.IsInlier),
			strconv.FormatBool(r.InBoundary),
			strconv.FormatFloat(r.Pos.X, 'f', -1, 64),
			strconv.FormatFloat(r.Pos.Y, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type geoFeature struct {
	Type       string         `json:"type"`
	Geometry   geoGeometry    `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geoGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type geoCollection struct {
	Type     string       `json:"type"`
	CRS      *geoCRS      `json:"crs,omitempty"`
	Features []geoFeature `json:"features"`
}

type geoCRS struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
}

// WriteGeoJSON writes records as a point FeatureCollection. crs may be
// empty, in which case the member is omitted.
func WriteGeoJSON(w io.Writer, crs string, recs []Record) error {
	fc := geoCollection{Type: "FeatureCollection", Features: make([]geoFeature, len(recs))}
	if crs != "" {
		fc.CRS = &geoCRS{Type: "name", Properties: map[string]string{"name": crs}}
	}
	for i, r := range recs {
		fc.Features[i] = geoFeature{
			Type:     "Feature",
			Geometry: geoGeometry{Type: "Point", Coordinates: [2]float64{r.Pos.X, r.Pos.Y}},
			Properties: map[string]any{
				"fid":         r.OriginalID,
				"new_id":      r.NewID,
				"ridge_id":    r.RidgeID,
				"ridge_rank":  r.RidgeRank,
				"plant_rank":  r.PlantRank,
				"is_inlier":   r.IsInlier,
				"in_boundary": r.InBoundary,
			},
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}
	return nil
}
