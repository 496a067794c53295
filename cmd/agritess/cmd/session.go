package cmd

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/config"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/field"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/geom"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/ridge"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/session"
	"github.com/spf13/cobra"
)

// addSessionFlags registers the flags shared by all commands that run the
// numbering pipeline over a points file.
func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().String("boundary", "", "field boundary file (GeoJSON polygon)")
	cmd.Flags().String("crs", "", "CRS to assume for files that carry none (e.g. EPSG:32654)")
	cmd.Flags().String("direction", "",
		"ridge direction source: boundary_primary, boundary_primary_negated, "+
			"boundary_secondary, boundary_secondary_negated, or manual (default boundary_primary with a boundary)")
	cmd.Flags().String("from", "", "manual direction start point as x,y")
	cmd.Flags().String("to", "", "manual direction end point as x,y")
}

// parseXY parses an "x,y" coordinate pair.
func parseXY(s string) (geom.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geom.Point{}, fmt.Errorf("invalid coordinate %q (want x,y)", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geom.Point{}, fmt.Errorf("invalid x in %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geom.Point{}, fmt.Errorf("invalid y in %q: %w", s, err)
	}
	return geom.Point{X: x, Y: y}, nil
}

// buildController loads the points file and optional boundary, resolves the
// ridge direction from flags, and returns a ready controller.
func buildController(cmd *cobra.Command, pointsPath string, cfg *config.Config) (*session.Controller, error) {
	crs, _ := cmd.Flags().GetString("crs")

	points, err := field.LoadPointsFile(pointsPath, crs)
	if err != nil {
		return nil, fmt.Errorf("loading points: %w", err)
	}

	ctrl, err := session.New(slog.Default(), cfg.Session)
	if err != nil {
		return nil, err
	}
	if err := ctrl.LoadPoints(points); err != nil {
		return nil, err
	}

	boundaryPath, _ := cmd.Flags().GetString("boundary")
	if boundaryPath != "" {
		boundary, err := field.LoadBoundaryFile(boundaryPath, crs)
		if err != nil {
			return nil, fmt.Errorf("loading boundary: %w", err)
		}
		if err := ctrl.SetBoundary(boundary); err != nil {
			return nil, err
		}
	}

	direction, _ := cmd.Flags().GetString("direction")
	switch {
	case direction == string(ridge.SourceManual):
		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")
		if fromStr == "" || toStr == "" {
			return nil, fmt.Errorf("--direction manual requires --from and --to")
		}
		from, err := parseXY(fromStr)
		if err != nil {
			return nil, err
		}
		to, err := parseXY(toStr)
		if err != nil {
			return nil, err
		}
		if err := ctrl.UseManualDirection(from, to); err != nil {
			return nil, err
		}
	case direction != "":
		if err := ctrl.UseBoundaryDirection(ridge.Source(direction)); err != nil {
			return nil, err
		}
	case boundaryPath != "":
		if err := ctrl.UseBoundaryDirection(ridge.SourceBoundaryPrimary); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("no ridge direction: pass --boundary or --direction manual with --from/--to")
	}

	return ctrl, nil
}
