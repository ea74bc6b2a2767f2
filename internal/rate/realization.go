package rate

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// LogNormalRealization draws n independent log-normal rate values. The
// result is a noisy intermittency array suitable for Array.
func LogNormalRealization(n int, mu, sigma float64, src rand.Source) ([]float64, error) {
	if n <= 0 || !(sigma > 0) {
		return nil, fmt.Errorf("log-normal realization n=%d sigma=%g: %w", n, sigma, ErrTypeMismatch)
	}
	dist := distuv.LogNormal{Mu: mu, Sigma: sigma, Src: src}
	return draw(n, dist.Rand), nil
}

// GammaRealization draws n independent gamma rate values with the given
// shape and scale (mean shape*scale).
func GammaRealization(n int, shape, scale float64, src rand.Source) ([]float64, error) {
	if n <= 0 || !(shape > 0) || !(scale > 0) {
		return nil, fmt.Errorf("gamma realization n=%d shape=%g scale=%g: %w", n, shape, scale, ErrTypeMismatch)
	}
	dist := distuv.Gamma{Alpha: shape, Beta: 1 / scale, Src: src}
	return draw(n, dist.Rand), nil
}

func draw(n int, next func() float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = next()
	}
	return out
}
