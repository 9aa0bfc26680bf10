package metrics

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/sciforest/fields"
	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
	"github.com/ezoic/sciforest/result"
)

// Predictor scores one input.
type Predictor func(ctx context.Context, in fields.Input) (*result.Result, error)

// Evaluation holds the metrics of a predictor over labelled rows. Only the
// regression metrics or the classification metrics are set, following the
// kind of the objective values.
type Evaluation struct {
	Objective  string
	Rows       int
	Skipped    int
	Regression bool

	MSE  float64
	RMSE float64
	MAE  float64
	// R2 is NaN when the actual values have no variance.
	R2 float64
	// Actual and Predicted hold the compared regression values.
	Actual    []float64
	Predicted []float64

	Accuracy  float64
	Labels    []string
	Confusion *mat.Dense
}

// Evaluate predicts every row and compares the predictions with the row's
// objective value. Rows without an objective value are skipped. The
// objective is removed from the input given to predict.
func Evaluate(ctx context.Context, predict Predictor, rows []fields.Input, objective string) (*Evaluation, error) {
	ev := &Evaluation{Objective: objective}
	var (
		trueNum, predNum []float64
		trueCat, predCat []string
	)
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		actual, ok := row[objective]
		if !ok {
			ev.Skipped++
			continue
		}
		in := make(fields.Input, len(row))
		for id, v := range row {
			if id != objective {
				in[id] = v
			}
		}
		r, err := predict(ctx, in)
		if err != nil {
			return nil, scigoErrors.Wrapf(err, "predicting row %d", i)
		}

		y, numeric := actual.Float()
		if ev.Rows == 0 {
			ev.Regression = numeric
		} else if numeric != ev.Regression {
			return nil, scigoErrors.NewValueError("metrics.Evaluate",
				fmt.Sprintf("row %d mixes numeric and categorical objective values", i))
		}
		ev.Rows++
		if numeric {
			p, ok := r.Prediction.Float()
			if !ok {
				return nil, scigoErrors.NewValueError("metrics.Evaluate",
					fmt.Sprintf("row %d: non numeric prediction %s", i, r.Prediction))
			}
			trueNum = append(trueNum, y)
			predNum = append(predNum, p)
			continue
		}
		trueCat = append(trueCat, actual.String())
		predCat = append(predCat, r.Prediction.String())
	}
	if ev.Rows == 0 {
		return nil, scigoErrors.NewValueError("metrics.Evaluate", "no labelled rows")
	}

	if ev.Regression {
		ev.Actual, ev.Predicted = trueNum, predNum
		yTrue := mat.NewVecDense(len(trueNum), trueNum)
		yPred := mat.NewVecDense(len(predNum), predNum)
		var err error
		if ev.MSE, err = MSE(yTrue, yPred); err != nil {
			return nil, err
		}
		ev.RMSE = math.Sqrt(ev.MSE)
		if ev.MAE, err = MAE(yTrue, yPred); err != nil {
			return nil, err
		}
		if ev.R2, err = R2Score(yTrue, yPred); err != nil {
			ev.R2 = math.NaN()
		}
		return ev, nil
	}

	var err error
	if ev.Accuracy, err = Accuracy(trueCat, predCat); err != nil {
		return nil, err
	}
	ev.Labels = Labels(trueCat, predCat)
	if ev.Confusion, err = ConfusionMatrix(trueCat, predCat, ev.Labels); err != nil {
		return nil, err
	}
	return ev, nil
}

// String renders the evaluation as a small text report.
func (ev *Evaluation) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "objective: %s\nrows: %d (skipped %d)\n", ev.Objective, ev.Rows, ev.Skipped)
	if ev.Regression {
		fmt.Fprintf(&b, "mse: %.6g\nrmse: %.6g\nmae: %.6g\nr2: %.6g\n", ev.MSE, ev.RMSE, ev.MAE, ev.R2)
		return b.String()
	}
	fmt.Fprintf(&b, "accuracy: %.4f\n", ev.Accuracy)
	b.WriteString("confusion (actual x predicted): " + strings.Join(ev.Labels, ", ") + "\n")
	fmt.Fprintf(&b, "%v\n", mat.Formatted(ev.Confusion))
	return b.String()
}
