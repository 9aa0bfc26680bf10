// Package metrics scores predictions against labelled rows.
//
// Regression predictions are compared with MSE, RMSE, MAE and R², and
// classifications with accuracy and a confusion matrix. Evaluate runs a
// predictor over a set of rows and collects the metrics that fit the
// objective field.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
)

func residuals(op string, yTrue, yPred *mat.VecDense) (*mat.VecDense, error) {
	n := yTrue.Len()
	if n == 0 {
		return nil, scigoErrors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return nil, scigoErrors.NewDimensionError(op, n, yPred.Len())
	}
	diff := mat.NewVecDense(n, nil)
	diff.SubVec(yTrue, yPred)
	return diff, nil
}

// MSE returns the mean squared error of yPred.
//
//	mse, err := metrics.MSE(yTrue, yPred)
//	if err != nil {
//	    return err
//	}
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	diff, err := residuals("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return mat.Dot(diff, diff) / float64(diff.Len()), nil
}

// RMSE returns the square root of MSE, in the unit of the objective.
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE returns the mean absolute error of yPred.
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	diff, err := residuals("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return mat.Norm(diff, 1) / float64(diff.Len()), nil
}

// R2Score returns the coefficient of determination of yPred. It fails when
// yTrue has no variance.
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	diff, err := residuals("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	truth := mat.Col(nil, 0, yTrue)
	mean := stat.Mean(truth, nil)
	var tss float64
	for _, y := range truth {
		tss += (y - mean) * (y - mean)
	}
	if tss == 0 {
		return 0, scigoErrors.NewValueError("R2Score", "total sum of squares is zero")
	}
	return 1 - mat.Dot(diff, diff)/tss, nil
}
