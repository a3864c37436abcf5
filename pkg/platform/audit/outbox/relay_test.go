package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu        sync.Mutex
	entries   []Entry
	published map[string]bool
}

func (f *fakeSource) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeSource) FetchUnpublished(_ context.Context, limit int) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Entry
	for _, e := range f.entries {
		if !f.published[e.ID] && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeSource) MarkPublished(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.published[id] = true
	}
	return nil
}

type fakeProducer struct {
	failOn string
	keys   []string
}

func (p *fakeProducer) Produce(_ context.Context, key, _ []byte, headers map[string]string) error {
	if headers["outbox_id"] == p.failOn {
		return errors.New("broker unavailable")
	}
	p.keys = append(p.keys, string(key))
	return nil
}

func newSource() *fakeSource {
	return &fakeSource{
		entries: []Entry{
			{ID: "e1", AggregateID: "p1", EventType: "correction_applied"},
			{ID: "e2", AggregateID: "p2", EventType: "correction_failed"},
			{ID: "e3", AggregateID: "p1", EventType: "correction_rejected"},
		},
		published: map[string]bool{},
	}
}

func TestRelayOnce_PublishesInOrder(t *testing.T) {
	src := newSource()
	prod := &fakeProducer{}
	r := NewRelay(src, prod, WithBatchSize(10))

	n, err := r.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"p1", "p2", "p1"}, prod.keys)

	n, err = r.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelayOnce_StopsAtFirstFailure(t *testing.T) {
	src := newSource()
	r := NewRelay(src, &fakeProducer{failOn: "e2"})

	n, err := r.RelayOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, src.published["e1"])
	assert.False(t, src.published["e2"])
	assert.False(t, src.published["e3"], "later entries wait so ordering holds")
}
