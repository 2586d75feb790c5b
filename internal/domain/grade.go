package domain

// Grade is the letter classification of a comfort index score.
// A is best (lowest risk), E is worst.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeE Grade = "E"
)

// GradeForScore classifies a score in [0,100] into a letter grade.
//
// Cutoffs are 20/40/60/80 and a boundary value belongs to the higher (worse)
// grade: 20.0 is B, 80.0 is E. This is the only grade derivation in the
// codebase; do not reimplement the boundary rule elsewhere.
func GradeForScore(score float64) Grade {
	switch {
	case score < 20:
		return GradeA
	case score < 40:
		return GradeB
	case score < 60:
		return GradeC
	case score < 80:
		return GradeD
	default:
		return GradeE
	}
}
