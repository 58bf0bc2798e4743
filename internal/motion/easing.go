package motion

import (
	"fmt"
	"strings"
)

// Easing selects the interpolation curve between the start and end viewport.
type Easing string

const (
	Linear    Easing = "linear"
	EaseInOut Easing = "ease-in-out"
	EaseIn    Easing = "ease-in"
	EaseOut   Easing = "ease-out"
)

// ParseEasing accepts an easing name; empty means Linear.
func ParseEasing(name string) (Easing, error) {
	switch e := Easing(strings.ToLower(strings.TrimSpace(name))); e {
	case "":
		return Linear, nil
	case Linear, EaseInOut, EaseIn, EaseOut:
		return e, nil
	default:
		return "", fmt.Errorf("unknown easing: %s", name)
	}
}

// Apply maps a clamped position through the curve.
func (e Easing) Apply(t float64) float64 {
	t = clamp01(t)
	switch e {
	case EaseInOut:
		return easeInOutCubic(t)
	case EaseIn:
		return t * t * t
	case EaseOut:
		return 1 - pow(1-t, 3)
	default:
		return t
	}
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// easeInOutCubic applies smooth easing function
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - pow(-2*t+2, 3)/2
}

// pow calculates x^n
func pow(x float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}

func clamp01(t float64) float64 {
	if t != t || t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
