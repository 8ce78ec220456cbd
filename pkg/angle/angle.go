package angle

import "math"

// PlusMinus180 is a heading in degrees, stored as a value in range (-180, 180].
// All operations clamp their output into range.
type PlusMinus180 struct {
	float64
}

func (a PlusMinus180) Add(b PlusMinus180) PlusMinus180 {
	return FromFloat(a.float64 + b.float64)
}

func (a PlusMinus180) Sub(b PlusMinus180) PlusMinus180 {
	return FromFloat(a.float64 - b.float64)
}

func (a PlusMinus180) AddFloat(f float64) PlusMinus180 {
	return FromFloat(a.float64 + f)
}

// Float returns the angle in degrees, range (-180, 180].
func (a PlusMinus180) Float() float64 {
	return a.float64
}

// Radians returns the angle in radians, range (-pi, pi].
func (a PlusMinus180) Radians() float64 {
	return ToRadians(a.float64)
}

// FromFloat converts a float of any magnitude to a PlusMinus180 by calculating
// f mod 360 and shifting into range.
func FromFloat(f float64) PlusMinus180 {
	d := math.Mod(f, 360)
	if d <= -180 {
		d += 360
	} else if d > 180 {
		d -= 360
	}
	return PlusMinus180{d}
}

// Error returns the shortest signed rotation, in degrees, that takes current
// onto target.  Positive is clockwise.
func Error(target, current float64) float64 {
	return FromFloat(target - current).Float()
}

// Wrap360 maps any angle onto [0, 360).
func Wrap360(f float64) float64 {
	d := math.Mod(f, 360)
	if d < 0 {
		d += 360
	}
	return d
}

func ToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func ToDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
