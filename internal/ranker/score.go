package ranker

import (
	"gonum.org/v1/gonum/floats"
)

// Centroid returns the elementwise mean of vectors. All vectors must have the
// same length; callers validate this.
func Centroid(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}
	c := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		floats.Add(c, v)
	}
	floats.Scale(1/float64(len(vectors)), c)
	return c
}

// Score computes the FastLexRank centrality of every vector:
//
//	score_i = (v_i · c) / ||c||
//
// where c is the centroid of all vectors. The vector's own magnitude is not
// divided out, so a lone vector scores its own norm. A zero centroid makes
// every dot product zero, and every score is then 0.
func Score(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}
	c := Centroid(vectors)
	norm := floats.Norm(c, 2)

	scores := make([]float64, len(vectors))
	if norm == 0 {
		return scores
	}
	for i, v := range vectors {
		scores[i] = floats.Dot(v, c) / norm
	}
	return scores
}
