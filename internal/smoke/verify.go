package smoke

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/okian/faceattr/internal/domain/prediction"
)

const sumTolerance = 1e-6

// ErrContract is returned when a response breaks the label contract.
var ErrContract = errors.New("prediction contract violated")

// Verify checks that p uses only the fixed labels, that every distribution
// sums to one and that each reported label is its distribution's arg-max.
func Verify(p Prediction) error {
	if err := verifyCategory("race", p.Race, 0, p.RaceProbs, prediction.RaceLabels[:], false); err != nil {
		return err
	}
	if err := verifyCategory("gender", p.Gender, p.GenderProb, p.GenderProbs, prediction.GenderLabels[:], true); err != nil {
		return err
	}
	return verifyCategory("age", p.Age, p.AgeProb, p.AgeProbs, prediction.AgeLabels[:], true)
}

// verifyCategory checks one segment. Distributions are optional in the wire
// format for gender and age; race always carries one.
func verifyCategory(name, label string, prob float64, probs map[string]float64, labels []string, hasProb bool) error {
	if !slices.Contains(labels, label) {
		return fmt.Errorf("%w: %s label %q not in %v", ErrContract, name, label, labels)
	}
	if hasProb && (prob <= 0 || prob > 1) {
		return fmt.Errorf("%w: %s_prob %v outside (0,1]", ErrContract, name, prob)
	}
	if probs == nil {
		if !hasProb {
			return fmt.Errorf("%w: %s_probs missing", ErrContract, name)
		}
		return nil
	}

	if len(probs) != len(labels) {
		return fmt.Errorf("%w: %s_probs has %d entries, want %d", ErrContract, name, len(probs), len(labels))
	}
	var sum float64
	best, bestProb := "", math.Inf(-1)
	for _, l := range labels {
		v, ok := probs[l]
		if !ok {
			return fmt.Errorf("%w: %s_probs missing %q", ErrContract, name, l)
		}
		sum += v
		if v > bestProb {
			best, bestProb = l, v
		}
	}
	if math.Abs(sum-1) > sumTolerance {
		return fmt.Errorf("%w: %s_probs sum to %v", ErrContract, name, sum)
	}
	if probs[label] != bestProb {
		return fmt.Errorf("%w: %s is %q but arg-max is %q", ErrContract, name, label, best)
	}
	if hasProb && math.Abs(prob-bestProb) > sumTolerance {
		return fmt.Errorf("%w: %s_prob %v differs from distribution %v", ErrContract, name, prob, bestProb)
	}
	return nil
}
