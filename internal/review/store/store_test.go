package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrwarp/locus/internal/review/models"
	id "github.com/vrwarp/locus/pkg/domain"
	"github.com/vrwarp/locus/pkg/platform/sentinel"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

	t.Run("save copies and find returns copies", func(t *testing.T) {
		s := New()
		d := &models.Decision{ID: id.NewDecisionID(), PersonID: "p1", Field: "phone", State: models.StatePending}
		require.NoError(t, s.Save(ctx, d))
		d.State = models.StateApproved

		got, err := s.FindByID(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatePending, got.State)

		got.State = models.StateFailed
		again, err := s.FindByID(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatePending, again.State)
	})

	t.Run("find open ignores resolved decisions", func(t *testing.T) {
		s := New()
		require.NoError(t, s.Save(ctx, &models.Decision{ID: id.NewDecisionID(), PersonID: "p1", Field: "phone", State: models.StateRejected}))
		_, err := s.FindOpen(ctx, "p1", "phone")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		open := &models.Decision{ID: id.NewDecisionID(), PersonID: "p1", Field: "phone", State: models.StateFailed}
		require.NoError(t, s.Save(ctx, open))
		got, err := s.FindOpen(ctx, "p1", "phone")
		require.NoError(t, err)
		assert.Equal(t, open.ID, got.ID)

		_, err = s.FindOpen(ctx, "p1", "name")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("list is oldest first", func(t *testing.T) {
		s := New()
		later := &models.Decision{ID: id.NewDecisionID(), CreatedAt: base.Add(time.Minute)}
		earlier := &models.Decision{ID: id.NewDecisionID(), CreatedAt: base}
		require.NoError(t, s.Save(ctx, later))
		require.NoError(t, s.Save(ctx, earlier))

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, earlier.ID, list[0].ID)
		assert.Equal(t, later.ID, list[1].ID)
	})

	t.Run("delete", func(t *testing.T) {
		s := New()
		d := &models.Decision{ID: id.NewDecisionID()}
		require.NoError(t, s.Save(ctx, d))
		require.NoError(t, s.Delete(ctx, d.ID))
		_, err := s.FindByID(ctx, d.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, d.ID), sentinel.ErrNotFound)
	})
}
