package privacy

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
)

// laplaceSample draws from Laplace(0, scale) by inverting the CDF over a
// uniform draw. Randomness comes from crypto/rand; a failing system RNG is
// surfaced as an error rather than degraded noise.
func laplaceSample(scale float64) (float64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("privacy: read rng: %w", err)
	}

	// 53 mantissa bits, shifted into (0, 1) so the log below stays finite.
	u := (float64(binary.LittleEndian.Uint64(buf[:])>>11) + 0.5) / float64(1<<53)

	if u < 0.5 {
		return scale * math.Log(2*u), nil
	}
	return -scale * math.Log(2*(1-u)), nil
}
