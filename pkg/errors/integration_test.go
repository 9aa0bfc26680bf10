package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
)

func TestErrorWrappingCompatibility(t *testing.T) {
	original := scigoErrors.NewModelError("Ensemble.Predict", "chunk failed", scigoErrors.ErrModelNotFound)
	wrapped := fmt.Errorf("pipeline step failed: %w", original)

	assert.True(t, errors.Is(wrapped, scigoErrors.ErrModelNotFound))

	var modelErr *scigoErrors.ModelError
	require.True(t, errors.As(wrapped, &modelErr))
	assert.Equal(t, "Ensemble.Predict", modelErr.Op)
	assert.Equal(t, scigoErrors.ErrModelNotFound, modelErr.Unwrap())
}

func TestCategorizedValueError(t *testing.T) {
	err := scigoErrors.NewCategorizedValueError("OperatingPoint", scigoErrors.ErrInvalidOperatingPoint,
		"threshold %v outside [0, 1]", 1.5)

	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrInvalidOperatingPoint))
	assert.Equal(t, "sciforest: OperatingPoint: threshold 1.5 outside [0, 1]", err.Error())
}

func TestFieldErrorMatchesUnknownField(t *testing.T) {
	err := scigoErrors.Wrapf(scigoErrors.NewFieldError("load", "000001"), "node %d", 3)
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrUnknownField))
}

func TestDimensionError(t *testing.T) {
	err := scigoErrors.NewDimensionError("metrics.MSE", 4, 3)
	assert.True(t, scigoErrors.Is(err, scigoErrors.ErrDimensionMismatch))

	var dimErr *scigoErrors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 3, dimErr.Got)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, scigoErrors.Wrap(nil, "context"))
}

func TestRecover(t *testing.T) {
	run := func() (err error) {
		defer scigoErrors.Recover(&err, "run")
		panic("boom")
	}
	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic recovered: boom")

	runErr := func() (err error) {
		defer scigoErrors.Recover(&err, "run")
		panic(scigoErrors.ErrMalformedModel)
	}
	assert.True(t, scigoErrors.Is(runErr(), scigoErrors.ErrMalformedModel))
}
