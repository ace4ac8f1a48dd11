package models

import "time"

// Farm is a registered farm with its boundary polygon.
// AreaHa is derived on output and never stored.
type Farm struct {
	ID        int64     `bson:"_id"       db:"id"         json:"id"`
	OwnerID   int64     `bson:"ownerId"   db:"owner_id"   json:"user_id"`
	Name      string    `bson:"name"      db:"name"       json:"name"`
	Crop      string    `bson:"crop"      db:"crop"       json:"crop"`
	Area      Polygon   `bson:"area"      db:"-"          json:"area"` // GeoJSON Polygon, exterior ring only
	AreaHa    float64   `bson:"-"         db:"-"          json:"area_ha"`
	CreatedAt time.Time `bson:"createdAt" db:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" db:"updated_at" json:"updated_at"`
}

// Polygon is a GeoJSON Polygon geometry. Coordinates are [lon, lat] pairs.
type Polygon struct {
	Type        string        `bson:"type"        json:"type"`
	Coordinates [][][]float64 `bson:"coordinates" json:"coordinates"`
}

// Ring returns the exterior ring, or nil when the polygon has none.
func (p Polygon) Ring() [][]float64 {
	if len(p.Coordinates) == 0 {
		return nil
	}
	return p.Coordinates[0]
}
