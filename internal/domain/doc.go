// Package domain models per-spatial-unit urban signal observations and the
// analytics artifacts derived from them.
//
// # Data Source
//
// Signal records originate from the municipal open-data ETL jobs that run
// outside this service: civic-complaint exports (aggregated to one record per
// unit, day, and signal type), a one-off geographic vulnerability survey, and
// daily floating-population statistics. All of it is materialized into the
// signal store before the engine is invoked; the engine only reads.
//
// # Date Conventions
//
// Dates are calendar days encoded as "YYYY-MM-DD" strings in UTC. The
// encoding sorts lexicographically in date order, which the store layer
// relies on for range queries. Baseline metrics are keyed by calendar month
// ("YYYY-MM").
//
// # Signal Types
//
// A complaint day fans out into several SignalRecord rows sharing the unit
// and date:
//
//	total           total complaint count for the day
//	odor            odor complaints
//	trash           trash complaints
//	illegal_dumping illegal dumping complaints
//	night_ratio     fraction of the day's complaints filed 22:00-06:00
//	repeat_ratio    fraction filed by repeat reporters
//	other           anything the upstream classifier could not place
//
// Ratio-typed values are already in [0,1]; count-typed values are raw counts.
//
// # Grades
//
// The comfort index score maps to letter grades A (best) through E (worst)
// with cutoffs at 20/40/60/80. A boundary value always belongs to the higher
// (worse) grade: a score of exactly 20.0 is grade B. [GradeForScore] is the
// single implementation of that rule; every call site derives grades through
// it.
//
// # Missing Data
//
// "No data" is a first-class state, distinct from zero. Optional derived
// values are pointers (nil = could not be computed) so callers can tell an
// uncomputable score apart from a computed low one.
package domain
