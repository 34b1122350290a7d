package animation

// EaseInOutCubic maps linear time t in [0,1] onto a cubic ease-in-out
// curve: slow start, fast middle, slow finish.
func EaseInOutCubic(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}
