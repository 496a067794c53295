package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/export"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/field"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/server"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/session"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the interactive editing server",
	Long: `Start an HTTP server exposing one editing session.

The server provides JSON endpoints for session state, density profile,
ridge assignment and numbering, point edits with undo/redo, gated
CSV/GeoJSON export, HTML diagnostic charts, a WebSocket for state push,
and Prometheus metrics on /metrics.

Points and boundary can be preloaded from files or uploaded later
through the API.

Examples:
  agritess serve
  agritess serve --points points.geojson --boundary field.geojson
  agritess serve --host 0.0.0.0 --port 3000`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		serverCfg := cfg.Server
		if cmd.Flags().Changed("host") {
			serverCfg.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			serverCfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("cors-origin") {
			serverCfg.CORSOrigin, _ = cmd.Flags().GetString("cors-origin")
		}
		if cmd.Flags().Changed("timeout") {
			serverCfg.TimeoutSec, _ = cmd.Flags().GetInt("timeout")
		}

		ctrl, err := session.New(slog.Default(), cfg.Session)
		if err != nil {
			return err
		}
		defer ctrl.Close()

		crs, _ := cmd.Flags().GetString("crs")
		if pointsPath, _ := cmd.Flags().GetString("points"); pointsPath != "" {
			points, err := field.LoadPointsFile(pointsPath, crs)
			if err != nil {
				return fmt.Errorf("loading points: %w", err)
			}
			if err := ctrl.LoadPoints(points); err != nil {
				return err
			}
			slog.Info("preloaded points", "path", pointsPath, "count", points.Len())
		}
		if boundaryPath, _ := cmd.Flags().GetString("boundary"); boundaryPath != "" {
			boundary, err := field.LoadBoundaryFile(boundaryPath, crs)
			if err != nil {
				return fmt.Errorf("loading boundary: %w", err)
			}
			if err := ctrl.SetBoundary(boundary); err != nil {
				return err
			}
			slog.Info("preloaded boundary", "path", boundaryPath)
		}

		var store *export.Store
		if cfg.Export.RunStore != "" {
			store, err = export.OpenStore(cfg.Export.RunStore)
			if err != nil {
				return fmt.Errorf("opening run store: %w", err)
			}
			defer func() { _ = store.Close() }()
			slog.Info("run store attached", "path", cfg.Export.RunStore)
		}

		srv := server.NewServer(ctrl, store, serverCfg, slog.Default())
		if cfg.Raster.Dir != "" {
			if err := srv.LoadBasemap(cfg.Raster.Dir, cfg.Raster.ThumbnailEdge); err != nil {
				return fmt.Errorf("loading basemap: %w", err)
			}
		}
		httpServer := srv.HTTPServer()

		errChan := make(chan error, 1)
		go func() {
			slog.Info("server listening", "addr", serverCfg.Addr(), "session", ctrl.ID().String())
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

		select {
		case err := <-errChan:
			return err
		case sig := <-sigChan:
			slog.Info("received shutdown signal", "signal", sig.String())
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		slog.Info("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "", "host to bind to (overrides configuration)")
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides configuration)")
	serveCmd.Flags().String("cors-origin", "", "Access-Control-Allow-Origin value (overrides configuration)")
	serveCmd.Flags().Int("timeout", 0, "request timeout in seconds (overrides configuration)")
	serveCmd.Flags().String("points", "", "points file to preload (CSV or GeoJSON)")
	serveCmd.Flags().String("boundary", "", "boundary file to preload (GeoJSON polygon)")
	serveCmd.Flags().String("crs", "", "CRS to assume for files that carry none")
}
