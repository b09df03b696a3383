package datacube

import (
	"fmt"
	"math"

	gdal "github.com/airbusgeo/godal"
)

func PointsToWkt(lon1, lon2, lat1, lat2 float64) string {
	return fmt.Sprintf("POLYGON((%[1]f %[3]f, %[1]f %[4]f, %[2]f %[4]f, %[2]f %[3]f, %[1]f %[3]f))", lon1, lon2, lat1, lat2)
}

// span为minX, minY, maxX, maxY
func SpanToWkt(span [4]float64) string {
	return PointsToWkt(span[0], span[2], span[1], span[3])
}

// cell(x, y)覆盖的范围
func CellFootprintWkt(x, y int) string {
	return SpanToWkt(DefaultTileType.Extents(x, y))
}

// 与范围相交的cell，限定在数据立方体范围内
func SpanToCells(span [4]float64) (cells []Cell) {
	x0 := max(int(math.Floor(span[0])), X_MIN)
	x1 := min(int(math.Ceil(span[2]))-1, X_MAX)
	y0 := max(int(math.Floor(span[1])), Y_MIN)
	y1 := min(int(math.Ceil(span[3]))-1, Y_MAX)
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			cells = append(cells, Cell{X: x, Y: y})
		}
	}
	return
}

// 几何与cell是否相交
func (g *Toolbox) intersectsCell(geo *gdal.Geometry, x, y int) (ok bool, err error) {
	ref, err := g.getSridRef(UNIVERSAL_SRID)
	if err != nil {
		return
	}
	cell, err := gdal.NewGeometryFromWKT(CellFootprintWkt(x, y), ref)
	if err != nil {
		return
	}
	defer cell.Close()
	return geo.Intersects(cell)
}
