package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/vrwarp/locus/pkg/domain-errors"
	"github.com/vrwarp/locus/pkg/testutil"
)

func TestDecisionTransition(t *testing.T) {
	at := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

	allowed := []struct{ from, to State }{
		{StatePending, StateApproved},
		{StatePending, StateRejected},
		{StateApproved, StateApplied},
		{StateApproved, StateFailed},
		{StateFailed, StatePending},
	}
	for _, tc := range allowed {
		t.Run(string(tc.from)+" to "+string(tc.to), func(t *testing.T) {
			d := &Decision{State: tc.from}
			require.NoError(t, d.Transition(tc.to, at))
			assert.Equal(t, tc.to, d.State)
			assert.Equal(t, at, d.UpdatedAt)
		})
	}

	denied := []struct{ from, to State }{
		{StatePending, StateApplied},
		{StateRejected, StatePending},
		{StateApplied, StatePending},
		{StateFailed, StateApproved},
		{StateApproved, StateRejected},
	}
	for _, tc := range denied {
		t.Run(string(tc.from)+" not to "+string(tc.to), func(t *testing.T) {
			d := &Decision{State: tc.from}
			err := d.Transition(tc.to, at)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
			assert.Equal(t, tc.from, d.State)
		})
	}
}

func TestStateOpen(t *testing.T) {
	assert.True(t, StatePending.Open())
	assert.True(t, StateFailed.Open())
	assert.False(t, StateRejected.Open())
	assert.False(t, StateApplied.Open())
}

func TestDecisionLifecycle(t *testing.T) {
	at := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

	testutil.Given(t, "an approved decision whose write failed", func(t *testing.T) {
		d := &Decision{State: StatePending}
		require.NoError(t, d.Transition(StateApproved, at))
		require.NoError(t, d.Transition(StateFailed, at))
		assert.True(t, d.State.Open())

		testutil.When(t, "it is retried", func(t *testing.T) {
			require.NoError(t, d.Transition(StatePending, at.Add(time.Minute)))

			testutil.Then(t, "it can be approved again but not applied directly", func(t *testing.T) {
				assert.False(t, d.CanTransition(StateApplied))
				assert.True(t, d.CanTransition(StateApproved))
				assert.Equal(t, at.Add(time.Minute), d.UpdatedAt)
			})
			testutil.And(t, "it still counts as open", func(t *testing.T) {
				assert.True(t, d.State.Open())
			})
		})
	})
}
