package analysis

import (
	"math"
	"math/rand"
)

// Partition splits sample positions into a training and a test set.
type Partition struct {
	Train []int
	Test  []int
	Seed  int64
}

// SplitSamples shuffles positions 0..n-1 with seed and holds out
// ceil(n*testSize) of them for testing. The same seed always yields the
// same split.
func SplitSamples(n int, testSize float64, seed int64) Partition {
	positions := make([]int, n)
	for i := range positions {
		positions[i] = i
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(positions), func(i, j int) {
		positions[i], positions[j] = positions[j], positions[i]
	})

	testN := TestCount(n, testSize)
	return Partition{
		Test:  positions[:testN],
		Train: positions[testN:],
		Seed:  seed,
	}
}

// TestCount is the number of samples held out from n.
func TestCount(n int, testSize float64) int {
	if n <= 0 || testSize <= 0 {
		return 0
	}
	testN := int(math.Ceil(float64(n) * testSize))
	if testN > n {
		testN = n
	}
	return testN
}
