package mesh

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// GeoJSON layer names used in the "layer" property
const (
	LayerTile   = "tile"
	LayerMarker = "marker"
)

// cellRect returns a closed polygon covering rows [r0, r1) and columns
// [c0, c1). Coordinates are in cells with y pointing up, so row r spans
// y in [-r-1, -r].
func cellRect(r0, c0, r1, c1 int) orb.Polygon {
	x0, x1 := float64(c0), float64(c1)
	y0, y1 := -float64(r1), -float64(r0)
	return orb.Polygon{orb.Ring{
		{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0},
	}}
}

// LayoutFeatureCollection exports the assembled layout as GeoJSON. Each
// tile becomes a polygon in tile-cell space with its id, position,
// orientation and interior filled count. When search is non-nil, each
// marker occurrence becomes a polygon in composite-cell space.
func LayoutFeatureCollection(a *AssembledGrid, search *Search) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	d := a.TileDim

	corners := make(map[TileID]bool, 4)
	for _, id := range a.Corners() {
		corners[id] = true
	}

	for row, cells := range a.Cells {
		for col, placed := range cells {
			poly := cellRect(row*d, col*d, (row+1)*d, (col+1)*d)
			centroid, _ := planar.CentroidArea(poly)

			f := geojson.NewFeature(poly)
			f.ID = uint64(placed.ID)
			f.Properties["layer"] = LayerTile
			f.Properties["tileId"] = uint64(placed.ID)
			f.Properties["row"] = row
			f.Properties["col"] = col
			f.Properties["orientation"] = placed.Orientation.String()
			f.Properties["corner"] = corners[placed.ID]
			f.Properties["filled"] = Interior(placed.Grid).CountFilled()
			f.Properties["area"] = planar.Area(poly)
			f.Properties["centroid"] = []float64{centroid[0], centroid[1]}
			fc.Append(f)
		}
	}

	if search == nil {
		return fc
	}
	for i, hit := range search.Occurrences {
		poly := cellRect(hit.Row, hit.Col, hit.Row+search.Marker.Height, hit.Col+search.Marker.Width)
		f := geojson.NewFeature(poly)
		f.Properties["layer"] = LayerMarker
		f.Properties["index"] = i
		f.Properties["row"] = hit.Row
		f.Properties["col"] = hit.Col
		f.Properties["orientation"] = search.Orientation.String()
		fc.Append(f)
	}
	return fc
}

// MarkerCellPoints returns the centers of every marker cell hit as a
// MultiPoint in composite-cell space.
func MarkerCellPoints(search Search) orb.MultiPoint {
	var mp orb.MultiPoint
	for _, hit := range search.Occurrences {
		for _, cell := range search.Marker.Cells() {
			r, c := hit.Row+cell[0], hit.Col+cell[1]
			mp = append(mp, orb.Point{float64(c) + 0.5, -float64(r) - 0.5})
		}
	}
	return mp
}

// MarshalLayoutGeoJSON encodes the layout and marker hits as GeoJSON bytes
func MarshalLayoutGeoJSON(a *AssembledGrid, search *Search) ([]byte, error) {
	fc := LayoutFeatureCollection(a, search)
	if search != nil && search.Found() {
		f := geojson.NewFeature(MarkerCellPoints(*search))
		f.Properties["layer"] = LayerMarker + "-cells"
		f.Properties["count"] = len(search.Occurrences) * search.Marker.FilledCount()
		fc.Append(f)
	}
	return fc.MarshalJSON()
}
