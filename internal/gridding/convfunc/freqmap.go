package convfunc

import "math"

// FrequencyPlanes coarsens data channels into beam frequency planes.
// Consecutive channels share a plane while they lie within tol (fractional)
// of the plane's first channel. Each plane's frequency is the midpoint of
// the channels it covers.
func FrequencyPlanes(freqs []float64, tol float64) (chanMap []int, beamFreqs []float64) {
	chanMap = make([]int, len(freqs))
	if len(freqs) == 0 {
		return chanMap, nil
	}
	first := freqs[0]
	lo, hi := first, first
	for ch, f := range freqs {
		if ch > 0 && math.Abs(f-first) > tol*math.Abs(first) {
			beamFreqs = append(beamFreqs, (lo+hi)/2)
			first, lo, hi = f, f, f
		}
		lo, hi = math.Min(lo, f), math.Max(hi, f)
		chanMap[ch] = len(beamFreqs)
	}
	beamFreqs = append(beamFreqs, (lo+hi)/2)
	return chanMap, beamFreqs
}

// PolarizationPlanes maps every polarization to beam polarization plane 0.
func PolarizationPlanes(npol int) []int {
	return make([]int, npol)
}
