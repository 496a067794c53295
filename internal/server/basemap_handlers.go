package server

import (
	"image"
	"image/png"
	"net/http"
	"path/filepath"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/raster"
)

// basemap holds the orthomosaic tiles served under the point cloud. Tiles
// are decoded and downscaled once at load; handlers serve from memory.
type basemap struct {
	dir      string
	order    []string
	tiles    map[string]basemapTile
	failures []BasemapFailure
}

type basemapTile struct {
	meta  raster.Metadata
	thumb image.Image
}

// BasemapTileInfo describes one loadable tile.
type BasemapTileInfo struct {
	Name        string `json:"name"`
	Format      string `json:"format"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	SizeBytes   int64  `json:"size_bytes"`
	ThumbWidth  int    `json:"thumb_width"`
	ThumbHeight int    `json:"thumb_height"`
}

// BasemapFailure reports one tile that could not be decoded.
type BasemapFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// BasemapResponse is the tile inventory for the map shell.
type BasemapResponse struct {
	Dir      string            `json:"dir"`
	Tiles    []BasemapTileInfo `json:"tiles"`
	Failures []BasemapFailure  `json:"failures,omitempty"`
}

// LoadBasemap decodes every supported raster in dir and prepares display
// thumbnails capped at maxEdge pixels. Per-tile decode failures are kept
// for the inventory response; only an unreadable directory is an error.
func (s *Server) LoadBasemap(dir string, maxEdge int) error {
	results, err := raster.LoadDir(dir)
	if err != nil {
		return err
	}
	bm := &basemap{dir: dir, tiles: map[string]basemapTile{}}
	for _, res := range results {
		name := filepath.Base(res.Path)
		if res.Err != nil {
			bm.failures = append(bm.failures, BasemapFailure{Name: name, Error: res.Err.Error()})
			s.logger.Warn("basemap tile skipped", "tile", name, "error", res.Err)
			continue
		}
		bm.tiles[name] = basemapTile{meta: res.Meta, thumb: raster.Thumbnail(res.Img, maxEdge)}
		bm.order = append(bm.order, name)
	}
	s.basemap = bm
	s.logger.Info("basemap loaded", "dir", dir, "tiles", len(bm.order), "failures", len(bm.failures))
	return nil
}

// basemapHandler returns the tile inventory, including decode failures.
func (s *Server) basemapHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.basemap == nil {
		s.writeError(w, "no basemap configured", http.StatusNotFound)
		return
	}
	resp := BasemapResponse{Dir: s.basemap.dir, Tiles: make([]BasemapTileInfo, 0, len(s.basemap.order))}
	for _, name := range s.basemap.order {
		tile := s.basemap.tiles[name]
		tb := tile.thumb.Bounds()
		resp.Tiles = append(resp.Tiles, BasemapTileInfo{
			Name:        name,
			Format:      tile.meta.Format,
			Width:       tile.meta.Width,
			Height:      tile.meta.Height,
			SizeBytes:   tile.meta.SizeBytes,
			ThumbWidth:  tb.Dx(),
			ThumbHeight: tb.Dy(),
		})
	}
	resp.Failures = s.basemap.failures
	s.writeJSON(w, resp)
}

// basemapTileHandler serves one tile thumbnail as PNG.
func (s *Server) basemapTileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.basemap == nil {
		s.writeError(w, "no basemap configured", http.StatusNotFound)
		return
	}
	// Base strips any path components a crafted name could smuggle in.
	name := filepath.Base(r.URL.Query().Get("name"))
	tile, ok := s.basemap.tiles[name]
	if !ok {
		s.writeError(w, "unknown tile", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, tile.thumb); err != nil {
		s.logger.Error("encoding basemap tile", "tile", name, "error", err)
	}
}
