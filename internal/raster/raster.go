// Package raster loads field basemap imagery (orthomosaic tiles exported
// as TIFF or plain images) for display under the point cloud. Decoding is
// best-effort: a directory load collects per-file failures instead of
// aborting on the first bad tile.
package raster

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff"
)

// ErrUnsupportedFormat is returned for files outside the supported set.
var ErrUnsupportedFormat = errors.New("unsupported raster format")

// SupportedExtensions lists the file extensions the loader accepts.
var SupportedExtensions = []string{".tif", ".tiff", ".png", ".jpg", ".jpeg"}

// IsSupported reports whether the path has a supported raster extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Metadata captures lightweight file and pixel information for one tile.
type Metadata struct {
	Path      string
	Format    string
	SizeBytes int64
	Width     int
	Height    int
}

// Load opens and decodes one raster tile.
func Load(path string) (image.Image, Metadata, error) {
	if !IsSupported(path) {
		return nil, Metadata{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("open raster: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("stat raster: %w", err)
	}
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("decode raster %s: %w", filepath.Base(path), err)
	}
	b := img.Bounds()
	return img, Metadata{
		Path:      path,
		Format:    format,
		SizeBytes: fi.Size(),
		Width:     b.Dx(),
		Height:    b.Dy(),
	}, nil
}

// Thumbnail downscales a tile to fit within maxEdge pixels on its longest
// side, preserving aspect ratio. Tiles already small enough are returned
// unchanged.
func Thumbnail(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxEdge && b.Dy() <= maxEdge {
		return img
	}
	return imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
}

// Result is one entry of a directory load. Err is set when the tile could
// not be decoded; the image is nil in that case.
type Result struct {
	Path string
	Img  image.Image
	Meta Metadata
	Err  error
}

// LoadDir decodes every supported raster in dir, in name order. Files
// with unsupported extensions are skipped; decode failures are collected
// per entry rather than failing the whole load.
func LoadDir(dir string) ([]Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read raster dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsSupported(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	results := make([]Result, 0, len(paths))
	for _, p := range paths {
		img, meta, err := Load(p)
		results = append(results, Result{Path: p, Img: img, Meta: meta, Err: err})
	}
	return results, nil
}

// Failures extracts the failed entries of a directory load.
func Failures(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
