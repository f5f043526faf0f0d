package raster

import (
	"fmt"
	"math"
	"sync"

	"github.com/airbusgeo/godal"
)

// gdalOnce guards godal.RegisterAll, which registers every GDAL driver
// process-wide and must run exactly once before the first Open.
var gdalOnce sync.Once

// gdalMu serializes GDAL calls. GDAL (and the libtiff/libgeotiff it links
// against) keeps internal global state that is not safe for concurrent use,
// the same constraint the corpus's own GDAL-backed elevation reader
// serializes its tile opens against.
var gdalMu sync.Mutex

// ReadProviderGeoTIFF decodes the single-band GeoTIFF a satellite coverage
// fetch writes to disk: band 1 plus its affine georeferencing, read through
// GDAL rather than a bespoke TIFF parser, since GDAL already understands the
// full space of compressions, tiling layouts, and GeoTIFF geokey encodings a
// real provider can emit and this package has no reason to reimplement.
func ReadProviderGeoTIFF(path string) (*Grid, error) {
	gdalOnce.Do(godal.RegisterAll)

	gdalMu.Lock()
	defer gdalMu.Unlock()

	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("raster: open %s as geotiff: %w", path, err)
	}
	defer ds.Close()

	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, fmt.Errorf("raster: %s has no raster bands", path)
	}
	band := bands[0]

	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("raster: %s carries no geotransform: %w", path, err)
	}

	structure := ds.Structure()
	width, height := structure.SizeX, structure.SizeY
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: %s has empty dimensions %dx%d", path, width, height)
	}

	noData := float32(math.NaN())
	if nd, ok := band.NoData(); ok {
		noData = float32(nd)
	}

	transform := GeoTransform{
		OriginLon:   gt[0],
		PixelWidth:  gt[1],
		OriginLat:   gt[3],
		PixelHeight: gt[5],
	}
	g := NewGrid(width, height, transform, noData)

	if err := band.Read(0, 0, g.Data, width, height); err != nil {
		return nil, fmt.Errorf("raster: read %s band 1: %w", path, err)
	}
	return g, nil
}
