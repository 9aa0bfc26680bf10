package multivote

import (
	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
)

// OperatingKind names the score an operating point thresholds.
type OperatingKind string

// Operating kinds.
const (
	ProbabilityKind OperatingKind = "probability"
	ConfidenceKind  OperatingKind = "confidence"
)

// OperatingPoint predicts PositiveClass only when its score exceeds
// Threshold.
type OperatingPoint struct {
	Kind          OperatingKind `json:"kind" yaml:"kind"`
	Threshold     float64       `json:"threshold" yaml:"threshold"`
	PositiveClass string        `json:"positive_class" yaml:"positive_class"`
}

// Validate checks op against the known classes.
func (op OperatingPoint) Validate(classes []string) error {
	const name = "multivote.OperatingPoint"
	switch op.Kind {
	case ProbabilityKind, ConfidenceKind:
	default:
		return scigoErrors.NewCategorizedValueError(name, scigoErrors.ErrInvalidOperatingPoint,
			"unknown operating kind %q", op.Kind)
	}
	if op.Threshold < 0 || op.Threshold > 1 {
		return scigoErrors.NewCategorizedValueError(name, scigoErrors.ErrInvalidOperatingPoint,
			"threshold %v outside [0, 1]", op.Threshold)
	}
	for _, c := range classes {
		if c == op.PositiveClass {
			return nil
		}
	}
	return scigoErrors.NewCategorizedValueError(name, scigoErrors.ErrInvalidOperatingPoint,
		"unknown positive class %q", op.PositiveClass)
}

// SelectOperating applies op to a full score vector. The positive class
// wins when its score exceeds the threshold; otherwise the best scoring
// other class is returned.
func SelectOperating(scores []ClassScore, op OperatingPoint, classes []string) (ClassScore, error) {
	if err := op.Validate(classes); err != nil {
		return ClassScore{}, err
	}
	var (
		positive ClassScore
		found    bool
		others   []ClassScore
	)
	for _, s := range scores {
		if s.Category == op.PositiveClass {
			positive, found = s, true
			continue
		}
		others = append(others, s)
	}
	if !found {
		positive = ClassScore{Category: op.PositiveClass}
	}
	if positive.Score > op.Threshold || len(others) == 0 {
		return positive, nil
	}
	SortScores(others)
	return others[0], nil
}
