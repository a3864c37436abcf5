package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "github.com/vrwarp/locus/pkg/platform/audit"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, audit.Event{PersonID: "p2", Action: "b", Timestamp: base.Add(time.Minute)}))
	require.NoError(t, s.Append(ctx, audit.Event{PersonID: "p1", Action: "a", Timestamp: base}))

	events, err := s.ListByPerson(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].Action)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Action, "oldest first")

	s.Clear()
	all, err = s.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAuditEventCategory(t *testing.T) {
	assert.Equal(t, audit.CategoryCompliance, audit.EventCorrectionApplied.Category())
	assert.Equal(t, audit.CategoryOperations, audit.EventDecisionOpened.Category())
	assert.Equal(t, audit.CategoryOperations, audit.AuditEvent("unknown").Category())
}
