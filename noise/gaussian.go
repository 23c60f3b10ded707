package noise

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Gaussian is gaussian noise
type Gaussian struct {
	// dist is a multivariate normal distribution
	dist *distmv.Normal
	// mean is Gaussian mean
	mean []float64
	// cov is Gaussian covariance
	cov mat.Symmetric
	// seed seeds the noise source
	seed uint64
}

// NewGaussian creates new Gaussian noise with given mean and covariance,
// seeded from the wall clock. Use NewGaussianSeeded for reproducible noise.
// It returns error if it fails to create Gaussian.
func NewGaussian(mean []float64, cov mat.Symmetric) (*Gaussian, error) {
	return NewGaussianSeeded(mean, cov, uint64(time.Now().UnixNano()))
}

// NewGaussianSeeded creates new Gaussian noise with given mean and covariance
// whose source is seeded with seed.
// It returns error if it fails to create Gaussian.
func NewGaussianSeeded(mean []float64, cov mat.Symmetric, seed uint64) (*Gaussian, error) {
	dist, ok := newGaussianDist(cov, seed)
	if !ok {
		return nil, fmt.Errorf("failed to create new Gaussian noise")
	}

	return &Gaussian{
		dist: dist,
		mean: mean,
		cov:  cov,
		seed: seed,
	}, nil
}

// Sample generates a sample from Gaussian noise and returns it.
func (g *Gaussian) Sample() mat.Vector {
	r := g.dist.Rand(nil)
	for i := range r {
		r[i] += g.mean[i]
	}

	return mat.NewVecDense(len(r), r)
}

// Cov returns covariance matrix of Gaussian noise.
func (g *Gaussian) Cov() mat.Symmetric {
	return g.cov
}

// Mean returns Gaussian mean.
func (g *Gaussian) Mean() []float64 {
	return g.mean
}

// Reset resets Gaussian noise to its seed.
// It returns error if it fails to reset the noise.
func (g *Gaussian) Reset() error {
	dist, ok := newGaussianDist(g.cov, g.seed)
	if !ok {
		return fmt.Errorf("failed to reset Gaussian noise")
	}
	g.dist = dist

	return nil
}

func newGaussianDist(cov mat.Symmetric, seed uint64) (*distmv.Normal, bool) {
	src := rand.New(rand.NewSource(seed))
	// cov is square; rows and cols are the same size
	size, _ := cov.Dims()
	return distmv.NewNormal(make([]float64, size), cov, src)
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nMean=%v\nCov=%v\n}", g.mean, mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
