package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/export"
	"github.com/spf13/cobra"
)

const (
	outputFormatCSV     = "csv"
	outputFormatGeoJSON = "geojson"
	outputFormatBoth    = "both"
)

// renameCmd represents the rename command.
var renameCmd = &cobra.Command{
	Use:   "rename <points-file>",
	Short: "Number plant points along ridges and write the renamed outputs",
	Long: `Run the full numbering pipeline over a points file and write the
results as CSV and/or GeoJSON.

The points file is CSV (fid,x,y) or GeoJSON. Ridge direction comes from
the field boundary by default; pass --direction manual with --from and
--to to draw it yourself. Export refuses to write while any two points
share a label.

Examples:
  agritess rename points.geojson --boundary field.geojson
  agritess rename points.csv --crs EPSG:32654 --direction manual --from 0,0 --to 0,1
  agritess rename points.geojson --boundary field.geojson --format csv --save-run`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		format, _ := cmd.Flags().GetString("format")
		switch format {
		case outputFormatCSV, outputFormatGeoJSON, outputFormatBoth:
		default:
			return fmt.Errorf("invalid format %q (want csv, geojson, or both)", format)
		}

		outputDir := cfg.Export.OutputDir
		if cmd.Flags().Changed("output-dir") {
			outputDir, _ = cmd.Flags().GetString("output-dir")
		}
		name, _ := cmd.Flags().GetString("name")

		ctrl, err := buildController(cmd, args[0], cfg)
		if err != nil {
			return err
		}

		if err := ctrl.ReadyForSave(); err != nil {
			return fmt.Errorf("cannot export: %w", err)
		}
		snap, err := ctrl.Snapshot()
		if err != nil {
			return err
		}
		recs, err := export.BuildRecords(snap.Points, snap.Assignments, snap.Numbering)
		if err != nil {
			return err
		}

		if format == outputFormatCSV || format == outputFormatBoth {
			path := filepath.Join(outputDir, name+".csv")
			if err := writeFile(path, func(f *os.File) error {
				return export.WriteCSV(f, recs)
			}); err != nil {
				return err
			}
			slog.Info("wrote CSV", "path", path)
		}
		if format == outputFormatGeoJSON || format == outputFormatBoth {
			path := filepath.Join(outputDir, name+".geojson")
			if err := writeFile(path, func(f *os.File) error {
				return export.WriteGeoJSON(f, snap.Points.CRS, recs)
			}); err != nil {
				return err
			}
			slog.Info("wrote GeoJSON", "path", path)
		}

		saveRun, _ := cmd.Flags().GetBool("save-run")
		if saveRun {
			if cfg.Export.RunStore == "" {
				return fmt.Errorf("--save-run requires export.run_store in the configuration")
			}
			store, err := export.OpenStore(cfg.Export.RunStore)
			if err != nil {
				return fmt.Errorf("opening run store: %w", err)
			}
			defer func() { _ = store.Close() }()
			runID, err := store.SaveRun(ctrl.ID(), snap.Points.CRS, recs)
			if err != nil {
				return fmt.Errorf("saving run: %w", err)
			}
			slog.Info("saved run", "run_id", runID, "store", cfg.Export.RunStore)
		}

		slog.Info("renaming complete",
			"points", snap.Stats.TotalPoints,
			"ridges", snap.Stats.RidgeCount,
			"assigned", snap.Stats.AssignedPoints,
			"ignored", snap.Stats.IgnoredPoints)
		return nil
	},
}

// writeFile creates path and runs write against it, closing on all paths.
func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func init() {
	rootCmd.AddCommand(renameCmd)
	addSessionFlags(renameCmd)
	renameCmd.Flags().String("format", outputFormatBoth, "output format (csv, geojson, both)")
	renameCmd.Flags().String("output-dir", ".", "directory for output files")
	renameCmd.Flags().String("name", "numbering", "base name for output files")
	renameCmd.Flags().Bool("save-run", false, "persist the run to the configured SQLite run store")
}
