package models

import (
	"fmt"
	"math"
)

// DegreesPerKm - приближенный размер километра в градусах для региона развертывания
const DegreesPerKm = 0.009

// GeoPoint - географическая точка
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate проверяет диапазоны координат
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v out of range", p.Lat)
	}
	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude %v out of range", p.Lng)
	}
	return nil
}

// BoundingBox - прямоугольник в градусах, стороны параллельны осям
type BoundingBox struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
}

// BoxAround строит прямоугольник вокруг точки с полуразмером radius*DegreesPerKm.
// Это приближение, а не геодезическая окружность.
func BoxAround(p GeoPoint, radius float64) BoundingBox {
	d := radius * DegreesPerKm
	return BoundingBox{
		MinLat: p.Lat - d,
		MaxLat: p.Lat + d,
		MinLng: p.Lng - d,
		MaxLng: p.Lng + d,
	}
}

// Contains проверяет попадание точки в прямоугольник (границы включительно)
func (b BoundingBox) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// Cell - ячейка фиксированной сетки, в которую попадает точка
type Cell struct {
	Row int64
	Col int64
}

// CellOf квантует точку по сетке с шагом radius*DegreesPerKm
func CellOf(p GeoPoint, radius float64) Cell {
	step := radius * DegreesPerKm
	return Cell{
		Row: int64(math.Floor(p.Lat / step)),
		Col: int64(math.Floor(p.Lng / step)),
	}
}

func (c Cell) String() string {
	return fmt.Sprintf("%d:%d", c.Row, c.Col)
}
