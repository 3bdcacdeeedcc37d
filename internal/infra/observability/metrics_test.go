package observability_test

import (
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/atendimento-webhook-go/internal/infra/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestionSnapshot(t *testing.T) {
	m := observability.NewMetrics()

	m.IncrPayload("engagement", observability.OutcomeAccepted)
	m.IncrPayload("engagement", observability.OutcomeAccepted)
	m.IncrPayload("engagement", observability.OutcomeDuplicate)
	m.IncrPayload("visit", observability.OutcomeAccepted)
	m.IncrPayload("engagement", observability.OutcomeRejected)
	m.IncrPayload("visit", observability.OutcomeMalformed)
	m.IncrPayload("visit", observability.OutcomeFailed)
	m.IncrSentinel("name")
	m.IncrSentinel("name")
	m.IncrSentinel("phone")

	snap := m.IngestionSnapshot()

	assert.Equal(t, map[string]int64{"engagement": 2, "visit": 1}, snap.Accepted)
	assert.Equal(t, map[string]int64{"engagement": 1}, snap.Duplicates)
	assert.Equal(t, map[string]int64{"engagement": 1}, snap.Rejected)
	assert.Equal(t, map[string]int64{"visit": 1}, snap.Malformed)
	assert.Equal(t, map[string]int64{"visit": 1}, snap.Failed)
	assert.Equal(t, map[string]int64{"name": 2, "phone": 1}, snap.Sentinels)
	assert.Equal(t, "all_time", snap.Period)
}

func TestIngestionSnapshot_Empty(t *testing.T) {
	snap := observability.NewMetrics().IngestionSnapshot()

	assert.NotNil(t, snap.Accepted)
	assert.Empty(t, snap.Accepted)
	assert.Empty(t, snap.Sentinels)
}

func TestRecordStoreCall(t *testing.T) {
	m := observability.NewMetrics()

	m.RecordStoreCall("memory", "insert", 3*time.Millisecond, nil)
	m.RecordStoreCall("memory", "insert", 5*time.Millisecond, errors.New("boom"))

	errorSeries, err := testutil.GatherAndCount(m.Registry, "webhook_store_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, errorSeries)

	durationSeries, err := testutil.GatherAndCount(m.Registry, "webhook_store_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, durationSeries)
}
