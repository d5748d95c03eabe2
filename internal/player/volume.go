package player

import "math"

// silentVolume is what a zero level maps to.
const silentVolume = -10

// levelToVolume converts a 0.0-1.0 level to beep's Volume value.
// beep uses a logarithmic scale with base 2: Volume 0 means no change,
// -1 half volume, -2 a quarter. A level of 0 is silent.
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return silentVolume
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}
