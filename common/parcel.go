package common

// Point is a WGS84 position
type Point struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Parcel is a piece of land owned by a user.
// Boundary is an open ring: the first point is not repeated at the end.
type Parcel struct {
	ID       string  `json:"id"`
	UserID   string  `json:"user_id"`
	Boundary []Point `json:"boundary"`
}
