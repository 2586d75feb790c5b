package synthetic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livinglab/uci-engine/internal/domain"
)

func baseline(avg float64) *domain.BaselineMetric {
	return &domain.BaselineMetric{
		Period:             "2025-03",
		Category:           domain.BaselineCategoryOverall,
		CitywideAvgPerUnit: avg,
	}
}

func TestFillGaps(t *testing.T) {
	days := []string{"2025-03-01", "2025-03-02", "2025-03-03"}
	observed := []domain.SignalRecord{
		{UnitID: "unit-1", Date: "2025-03-02", SignalType: domain.SignalTotal, Value: 7},
	}

	got := FillGaps("unit-1", days, observed, baseline(5))
	require.Len(t, got, 2, "only the two missing days are filled")

	for _, r := range got {
		assert.True(t, r.Generated)
		assert.Equal(t, 0.5, r.Confidence)
		assert.Equal(t, domain.SignalTotal, r.SignalType)
		assert.GreaterOrEqual(t, r.Value, 5*0.7)
		assert.LessOrEqual(t, r.Value, 5*1.3)
	}
	assert.Equal(t, "2025-03-01", got[0].Date)
	assert.Equal(t, "2025-03-03", got[1].Date)
}

func TestFillGaps_Deterministic(t *testing.T) {
	days := []string{"2025-03-01"}

	first := FillGaps("unit-1", days, nil, baseline(5))
	second := FillGaps("unit-1", days, nil, baseline(5))
	require.Len(t, first, 1)
	assert.Equal(t, first, second)

	// A different unit on the same day draws a different value.
	other := FillGaps("unit-2", days, nil, baseline(5))
	require.Len(t, other, 1)
	assert.NotEqual(t, first[0].Value, other[0].Value)
}

func TestFillGaps_NoBaseline(t *testing.T) {
	assert.Nil(t, FillGaps("unit-1", []string{"2025-03-01"}, nil, nil))
	assert.Nil(t, FillGaps("unit-1", []string{"2025-03-01"}, nil, baseline(0)))
}

func TestFillGaps_GeneratedRecordsDoNotCount(t *testing.T) {
	days := []string{"2025-03-01"}
	prior := []domain.SignalRecord{
		{UnitID: "unit-1", Date: "2025-03-01", SignalType: domain.SignalTotal, Generated: true},
	}

	got := FillGaps("unit-1", days, prior, baseline(5))
	require.Len(t, got, 1, "an earlier generated record is still a gap")
}

func TestPartition(t *testing.T) {
	records := []domain.SignalRecord{
		{Date: "2025-03-01"},
		{Date: "2025-03-02", Generated: true},
		{Date: "2025-03-03"},
	}

	observed, generated := Partition(records)
	require.Len(t, observed, 2)
	require.Len(t, generated, 1)
	assert.Equal(t, "2025-03-01", observed[0].Date)
	assert.Equal(t, "2025-03-03", observed[1].Date)
	assert.Equal(t, "2025-03-02", generated[0].Date)
}
