package ridge

import (
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/geom"
	"gonum.org/v1/gonum/floats"
)

// Line is one ridge center-line segment for map overlay rendering. It is
// not consumed by assignment or numbering.
type Line struct {
	RidgeIndex int        `json:"ridge_index"`
	Start      geom.Point `json:"start"`
	End        geom.Point `json:"end"`
}

// BuildRidgeLines places, for every peak, a segment parallel to dir at the
// peak's perpendicular offset, spanning the point cloud's extent along
// dir. Empty points or peaks yield an empty slice.
func BuildRidgeLines(peaks []Peak, pts []geom.Point, dir geom.Vec) ([]Line, error) {
	if len(pts) == 0 || len(peaks) == 0 {
		return []Line{}, nil
	}
	along, err := geom.Project(pts, dir)
	if err != nil {
		return nil, err
	}
	origin := geom.Centroid(pts)
	perp := dir.Perp()
	tMin := floats.Min(along)
	tMax := floats.Max(along)
	lines := make([]Line, len(peaks))
	for i, pk := range peaks {
		offset := perp.Scale(pk.Center)
		lines[i] = Line{
			RidgeIndex: i,
			Start:      origin.Add(dir.Scale(tMin)).Add(offset),
			End:        origin.Add(dir.Scale(tMax)).Add(offset),
		}
	}
	return lines, nil
}
