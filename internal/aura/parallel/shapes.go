package parallel

import "github.com/banshee-data/aura/internal/aura/params"

// postureScale is applied to positions as they are read back.
func postureScale(p params.Posture) [3]float64 {
	switch p {
	case params.PostureLeaning:
		return [3]float64{1.08, 0.94, 1}
	case params.PostureCurled:
		return [3]float64{0.85, 0.8, 0.85}
	case params.PostureExpanded:
		return [3]float64{1.15, 1.1, 1.15}
	default:
		return [3]float64{1, 1.06, 1}
	}
}
