package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGradeForScore(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		expected Grade
	}{
		{"zero", 0, GradeA},
		{"just below first cutoff", 19.99, GradeA},
		{"boundary belongs to worse grade", 20.0, GradeB},
		{"mid B", 39.99, GradeB},
		{"boundary 40", 40.0, GradeC},
		{"boundary 60", 60.0, GradeD},
		{"just below 80", 79.99, GradeD},
		{"boundary 80", 80.0, GradeE},
		{"max", 100.0, GradeE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GradeForScore(tt.score))
		})
	}
}

func TestGradeForScore_Monotonic(t *testing.T) {
	order := map[Grade]int{GradeA: 0, GradeB: 1, GradeC: 2, GradeD: 3, GradeE: 4}

	prev := GradeA
	for score := 0.0; score <= 100.0; score += 0.5 {
		g := GradeForScore(score)
		assert.GreaterOrEqual(t, order[g], order[prev], "grade regressed at score %v", score)
		prev = g
	}
}
