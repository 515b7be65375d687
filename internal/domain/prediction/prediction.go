// Package prediction turns the classifier's raw output vector into labeled
// race, gender and age distributions.
package prediction

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutputSize is returned when the raw vector does not have OutputSize entries.
var ErrOutputSize = errors.New("unexpected classifier output size")

// Distribution is a probability distribution over a fixed label set.
// Labels and Probs share indices.
type Distribution struct {
	Labels []string
	Probs  []float64
}

// ArgMax returns the index of the most probable label. Ties resolve to the
// lowest index.
func (d Distribution) ArgMax() int {
	best := 0
	for i := 1; i < len(d.Probs); i++ {
		if d.Probs[i] > d.Probs[best] {
			best = i
		}
	}
	return best
}

// Map returns label -> probability.
func (d Distribution) Map() map[string]float64 {
	out := make(map[string]float64, len(d.Labels))
	for i, l := range d.Labels {
		out[l] = d.Probs[i]
	}
	return out
}

// Category is the arg-max label of a distribution together with the
// distribution itself.
type Category struct {
	Label        string
	Prob         float64
	Distribution Distribution
}

// Result holds the three independent predictions for one face.
type Result struct {
	Race   Category
	Gender Category
	Age    Category
}

// FromLogits splits the raw scores into the race, gender and age segments,
// softmax-normalizes each one and picks the arg-max label.
func FromLogits(raw []float32) (Result, error) {
	if len(raw) != OutputSize {
		return Result{}, fmt.Errorf("%w: got %d, want %d", ErrOutputSize, len(raw), OutputSize)
	}
	for i, v := range raw {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return Result{}, fmt.Errorf("non-finite score at index %d", i)
		}
	}

	return Result{
		Race:   categorize(raw[raceOffset:raceOffset+raceCount], RaceLabels[:]),
		Gender: categorize(raw[genderOffset:genderOffset+genderCount], GenderLabels[:]),
		Age:    categorize(raw[ageOffset:ageOffset+ageCount], AgeLabels[:]),
	}, nil
}

func categorize(scores []float32, labels []string) Category {
	d := Distribution{Labels: labels, Probs: Softmax(scores)}
	i := d.ArgMax()
	return Category{Label: labels[i], Prob: d.Probs[i], Distribution: d}
}

// Softmax converts raw scores into probabilities summing to 1. The maximum is
// subtracted first so large scores do not overflow.
func Softmax(scores []float32) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	maxScore := float64(scores[0])
	for _, s := range scores[1:] {
		maxScore = math.Max(maxScore, float64(s))
	}

	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(float64(s) - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
