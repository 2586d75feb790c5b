package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livinglab/uci-engine/internal/domain"
)

var testNow = time.Date(2025, 3, 2, 6, 0, 0, 0, time.UTC)

func TestIndexMessage(t *testing.T) {
	idx := domain.ComputedIndex{
		UnitID: "unit-1",
		Date:   "2025-03-01",
		Score:  72.5,
		Grade:  domain.GradeD,
	}

	msg, err := indexMessage(idx, testNow)
	require.NoError(t, err)

	assert.Equal(t, "unit-1", string(msg.Key))

	var decoded domain.ComputedIndex
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, idx.UnitID, decoded.UnitID)
	assert.Equal(t, idx.Score, decoded.Score)
	assert.Equal(t, idx.Grade, decoded.Grade)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "grade", msg.Headers[0].Key)
	assert.Equal(t, "D", string(msg.Headers[0].Value))
	assert.Equal(t, "computed_at", msg.Headers[1].Key)
	assert.Equal(t, "2025-03-02T06:00:00Z", string(msg.Headers[1].Value))
}

func TestAlertMessage(t *testing.T) {
	explanation := "statistical anomaly pattern detected"
	res := domain.AnomalyResult{
		UnitID:       "unit-9",
		Date:         "2025-03-01",
		AnomalyScore: 0.92,
		AnomalyFlag:  true,
		Explanation:  &explanation,
	}

	msg, err := alertMessage(res, testNow)
	require.NoError(t, err)

	assert.Equal(t, "unit-9", string(msg.Key))

	var decoded domain.AnomalyResult
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, res.AnomalyScore, decoded.AnomalyScore)
	assert.True(t, decoded.AnomalyFlag)
	require.NotNil(t, decoded.Explanation)
	assert.Equal(t, explanation, *decoded.Explanation)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "anomaly_flag", msg.Headers[0].Key)
	assert.Equal(t, "true", string(msg.Headers[0].Value))
}
