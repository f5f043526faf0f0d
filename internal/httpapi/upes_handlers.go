package httpapi

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/aeris-platform/aeris/internal/apierr"
	"github.com/aeris-platform/aeris/internal/raster"
)

// latestUPESLog reads the upes_*.json run log with the lexicographically
// greatest name, the same convention internal/alerts.latestFinalScoreRaster
// uses for final_score_*.tif.
func (h *handlers) latestUPESLog() (string, []byte, error) {
	dir := filepath.Join(h.d.Config.UPES.OutputBase, "hourly_scores", "logs")
	matches, err := filepath.Glob(filepath.Join(dir, "upes_*.json"))
	if err != nil {
		return "", nil, fmt.Errorf("httpapi: glob upes logs: %w", err)
	}
	if len(matches) == 0 {
		return "", nil, os.ErrNotExist
	}
	sort.Strings(matches)
	path := matches[len(matches)-1]
	body, err := os.ReadFile(path)
	return path, body, err
}

// upesLatest handles GET /api/upes/latest: the paths and scalar factors of
// the most recent UPES run log.
func (h *handlers) upesLatest(w http.ResponseWriter, r *http.Request) {
	_, body, err := h.latestUPESLog()
	if err != nil {
		writeError(w, h.log, apierr.DataMissing("no UPES run has completed yet"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// upesGrid handles GET /api/upes/grid?timestamp=YYYYMMDD_HH: the raster and
// log paths for one specific hour slot, without requiring it be the latest.
func (h *handlers) upesGrid(w http.ResponseWriter, r *http.Request) {
	stamp := param(r, "timestamp")
	if stamp == "" {
		writeError(w, h.log, apierr.Validation("timestamp is required, format YYYYMMDD_HH"))
		return
	}
	base := h.d.Config.UPES.OutputBase
	satPath := filepath.Join(base, "hourly_scores", "satellite_score", fmt.Sprintf("satellite_score_%s.tif", stamp))
	finalPath := filepath.Join(base, "hourly_scores", "final_score", fmt.Sprintf("final_score_%s.tif", stamp))
	logPath := filepath.Join(base, "hourly_scores", "logs", fmt.Sprintf("upes_%s.json", stamp))

	if _, err := os.Stat(finalPath); err != nil {
		writeError(w, h.log, apierr.NotFound("no UPES run recorded for timestamp %s", stamp))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"timestamp":            stamp,
		"satellite_score_path": satPath,
		"final_score_path":     finalPath,
		"log_path":             logPath,
	})
}

// upesHeatmap handles GET /api/upes/heatmap: a PNG rendering of the latest
// final_score raster, red channel scaled by cell value, transparent where
// no data exists. No image codec appears anywhere in the reference corpus
// (the pack's rasters are GeoTIFF/NetCDF inputs, never rendered), so this
// uses the standard library's image/png encoder directly; see DESIGN.md.
func (h *handlers) upesHeatmap(w http.ResponseWriter, r *http.Request) {
	dir := filepath.Join(h.d.Config.UPES.OutputBase, "hourly_scores", "final_score")
	matches, err := filepath.Glob(filepath.Join(dir, "final_score_*.tif"))
	if err != nil || len(matches) == 0 {
		writeError(w, h.log, apierr.DataMissing("no UPES final_score raster available yet"))
		return
	}
	sort.Strings(matches)
	grid, err := raster.ReadFile(matches[len(matches)-1])
	if err != nil {
		writeError(w, h.log, apierr.Internal(err, "read final_score raster"))
		return
	}

	img := image.NewRGBA(image.Rect(0, 0, grid.Width, grid.Height))
	for row := 0; row < grid.Height; row++ {
		for col := 0; col < grid.Width; col++ {
			v, ok := grid.At(col, row)
			if !ok {
				img.Set(col, row, color.RGBA{0, 0, 0, 0})
				continue
			}
			img.Set(col, row, heatColor(v))
		}
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_ = png.Encode(w, img)
}

// heatColor maps a [0,1] UPES score to a green-to-red gradient, opaque.
func heatColor(v float32) color.RGBA {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return color.RGBA{
		R: uint8(255 * v),
		G: uint8(255 * (1 - v)),
		B: 0,
		A: 255,
	}
}
