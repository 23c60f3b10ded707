package localise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestMahalanobis(t *testing.T) {
	assert := assert.New(t)

	// identity covariance: squared Euclidean norm
	delta := mat.NewVecDense(2, []float64{3.0, 4.0})
	cov := mat.NewDense(2, 2, []float64{1, 0, 0, 1})

	d, err := Mahalanobis(delta, cov)
	assert.NoError(err)
	assert.InDelta(25.0, d, 1e-10)

	// scaled covariance
	cov = mat.NewDense(2, 2, []float64{2, 0, 0, 2})
	d, err = Mahalanobis(delta, cov)
	assert.NoError(err)
	assert.InDelta(12.5, d, 1e-10)
}

func TestMahalanobisSingular(t *testing.T) {
	assert := assert.New(t)

	delta := mat.NewVecDense(2, []float64{1.0, 1.0})
	cov := mat.NewDense(2, 2, nil)

	_, err := Mahalanobis(delta, cov)
	assert.Error(err)
	assert.ErrorIs(err, ErrSingular)
}

func TestMahalanobisDimension(t *testing.T) {
	assert := assert.New(t)

	delta := mat.NewVecDense(3, []float64{1.0, 1.0, 1.0})
	cov := mat.NewDense(2, 2, []float64{1, 0, 0, 1})

	_, err := Mahalanobis(delta, cov)
	assert.Error(err)
	assert.ErrorIs(err, ErrDimension)

	_, err = Mahalanobis(mat.NewVecDense(2, nil), mat.NewDense(2, 3, nil))
	assert.ErrorIs(err, ErrDimension)
}
