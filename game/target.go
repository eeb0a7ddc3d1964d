package game

import (
	"math"
	"math/rand/v2"
)

// SatelliteElevation is the fixed height of every generated target.
const SatelliteElevation = 5.0

// TargetDistanceRange returns the [min, max] distance from the origin used
// to place the satellite for a given round.
func TargetDistanceRange(round int) (float64, float64) {
	switch {
	case round <= 5:
		return 50, 100
	case round <= 10:
		return 100, 200
	default:
		return 200, 400
	}
}

func GenerateTarget(round int, rng *rand.Rand) Vec3 {
	lo, hi := TargetDistanceRange(round)
	angle := rng.Float64() * 2 * math.Pi
	distance := lo + rng.Float64()*(hi-lo)
	return Vec3{math.Cos(angle) * distance, SatelliteElevation, math.Sin(angle) * distance}
}
