package simulation

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/chrissnell/ringbiomass/internal/correction"
)

const biasScale = correction.BiasResolution

// ErrBiasRange is returned when a range cannot supply the requested number of distinct
// rounded biases.
var ErrBiasRange = errors.New("bias range too narrow")

// DrawBiases draws trials distinct biases uniformly from [min, max], each rounded to three
// decimals. The result is sorted ascending.
func DrawBiases(rng *rand.Rand, min, max float64, trials int) ([]float64, error) {
	if trials <= 0 {
		return nil, fmt.Errorf("trial count must be positive, got %d", trials)
	}
	if min >= max {
		return nil, fmt.Errorf("bias min %.3f must be less than max %.3f", min, max)
	}
	if available := correction.BiasCapacity(min, max); available < trials {
		return nil, fmt.Errorf("%w: [%.3f, %.3f] holds %d values, need %d", ErrBiasRange, min, max, available, trials)
	}
	lo, hi := math.Ceil(min*biasScale), math.Floor(max*biasScale)

	seen := make(map[int64]struct{}, trials)
	out := make([]float64, 0, trials)
	for len(out) < trials {
		k := int64(math.Round((min + rng.Float64()*(max-min)) * biasScale))
		if float64(k) < lo || float64(k) > hi {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, float64(k)/biasScale)
	}
	sort.Float64s(out)
	return out, nil
}
