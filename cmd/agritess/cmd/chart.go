package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/chart"
	"github.com/spf13/cobra"
)

const (
	chartTypeProfile = "profile"
	chartTypeField   = "field"
	chartTypeBoth    = "both"
)

// chartCmd represents the chart command.
var chartCmd = &cobra.Command{
	Use:   "chart <points-file>",
	Short: "Render diagnostic charts for a points file",
	Long: `Run the numbering pipeline over a points file and render diagnostic
charts as standalone HTML.

The profile chart shows the cross-ridge density histogram with detected
ridge peaks. The field chart shows the points colored by ridge with the
fitted ridge lines.

Examples:
  agritess chart points.geojson --boundary field.geojson
  agritess chart points.csv --crs EPSG:32654 --direction manual --from 0,0 --to 0,1 --type field`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		chartType, _ := cmd.Flags().GetString("type")
		switch chartType {
		case chartTypeProfile, chartTypeField, chartTypeBoth:
		default:
			return fmt.Errorf("invalid chart type %q (want profile, field, or both)", chartType)
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
		snap, err := ctrl.Snapshot()
		if err != nil {
			return err
		}

		if chartType == chartTypeProfile || chartType == chartTypeBoth {
			path := filepath.Join(outputDir, name+"-profile.html")
			if err := writeFile(path, func(f *os.File) error {
				return chart.RenderProfile(f, snap.Profile, snap.Peaks, "Cross-ridge density")
			}); err != nil {
				return err
			}
			slog.Info("wrote profile chart", "path", path, "peaks", len(snap.Peaks))
		}
		if chartType == chartTypeField || chartType == chartTypeBoth {
			path := filepath.Join(outputDir, name+"-field.html")
			if err := writeFile(path, func(f *os.File) error {
				return chart.RenderFieldMap(f, snap.Points, snap.Assignments, snap.Lines, "Field map")
			}); err != nil {
				return err
			}
			slog.Info("wrote field chart", "path", path, "ridges", snap.Stats.RidgeCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	addSessionFlags(chartCmd)
	chartCmd.Flags().String("type", chartTypeBoth, "chart type (profile, field, both)")
	chartCmd.Flags().String("output-dir", ".", "directory for output files")
	chartCmd.Flags().String("name", "chart", "base name for output files")
}
