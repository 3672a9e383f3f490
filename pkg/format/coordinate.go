package format

import (
	"math"
	"strconv"
)

// InvalidCoordinates is returned when either axis is out of range.
const InvalidCoordinates = "invalid coordinates"

// CoordinateFormatter renders latitude/longitude pairs.
type CoordinateFormatter struct {
	// Precision is the number of decimals. Zero means 6.
	Precision int
}

func ValidLatitude(lat float64) bool {
	return finite(lat) && lat >= -90 && lat <= 90
}

func ValidLongitude(lon float64) bool {
	return finite(lon) && lon >= -180 && lon <= 180
}

func (f CoordinateFormatter) precision() int {
	if f.Precision <= 0 {
		return 6
	}
	return f.Precision
}

// Format renders "-34.603700, -58.381600".
func (f CoordinateFormatter) Format(lat, lon float64) string {
	if !ValidLatitude(lat) || !ValidLongitude(lon) {
		return InvalidCoordinates
	}
	p := f.precision()
	return strconv.FormatFloat(lat, 'f', p, 64) + ", " + strconv.FormatFloat(lon, 'f', p, 64)
}

// FormatHemisphere renders "34.6037° S, 58.3816° O". West is "O" (oeste).
func (f CoordinateFormatter) FormatHemisphere(lat, lon float64) string {
	if !ValidLatitude(lat) || !ValidLongitude(lon) {
		return InvalidCoordinates
	}
	ns := "N"
	if lat < 0 {
		ns = "S"
	}
	eo := "E"
	if lon < 0 {
		eo = "O"
	}
	p := f.precision()
	return strconv.FormatFloat(math.Abs(lat), 'f', p, 64) + "° " + ns + ", " +
		strconv.FormatFloat(math.Abs(lon), 'f', p, 64) + "° " + eo
}
