package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrwarp/locus/internal/directory/models"
	"github.com/vrwarp/locus/pkg/platform/circuit"
	"github.com/vrwarp/locus/pkg/platform/sentinel"
)

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return nil
}

func newTestClient(t *testing.T, h http.Handler, opts ...Option) (*Client, *sleepRecorder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	rec := &sleepRecorder{}
	opts = append([]Option{withSleep(rec.sleep)}, opts...)
	c, err := New(srv.URL, opts...)
	require.NoError(t, err)
	return c, rec
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	_, err := New("not a url")
	assert.Error(t, err)

	_, err = New("")
	assert.Error(t, err)
}

func TestListPeople(t *testing.T) {
	t.Run("decodes a page and reports more pages from links.next", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/people/v2/people", r.URL.Path)
			assert.Equal(t, "50", r.URL.Query().Get("offset"))
			assert.Equal(t, "25", r.URL.Query().Get("per_page"))
			_, _ = io.WriteString(w, `{
				"data": [{
					"id": "p1",
					"type": "Person",
					"attributes": {
						"first_name": "Ada",
						"last_name": "Lovelace",
						"birthdate": "1985-12-10",
						"household_id": "h1",
						"child": false,
						"last_checked_in_at": "2024-03-10T09:30:00-05:00",
						"phone_number": "555-123-4567",
						"team_ids": ["worship", "greeters", "worship"]
					}
				}],
				"links": {"next": "/people/v2/people?offset=75&per_page=25"},
				"meta": {"total_count": 120, "count": 1}
			}`)
		}))

		page, err := c.ListPeople(context.Background(), 2, 25)
		require.NoError(t, err)
		require.Len(t, page.People, 1)
		assert.True(t, page.HasMore)

		p := page.People[0]
		assert.Equal(t, "p1", p.ID)
		assert.Equal(t, "Ada Lovelace", p.Name)
		assert.Equal(t, models.BirthDate{Year: 1985, Month: 12, Day: 10}, p.BirthDate)
		assert.Equal(t, "h1", p.HouseholdID)
		require.NotNil(t, p.LastCheckIn)
		assert.Equal(t, time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC), *p.LastCheckIn)
		require.NotNil(t, p.Phone)
		assert.Equal(t, "555-123-4567", *p.Phone)
		assert.Equal(t, []string{"greeters", "worship"}, p.Teams)
	})

	t.Run("last page has no links.next", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"data": [], "links": {"self": "x"}, "meta": {"total_count": 0, "count": 0}}`)
		}))

		page, err := c.ListPeople(context.Background(), 0, 100)
		require.NoError(t, err)
		assert.False(t, page.HasMore)
		assert.Empty(t, page.People)
	})

	t.Run("malformed birthdate is treated as missing", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"data": [
				{"id": "p1", "attributes": {"name": "Ada", "birthdate": "1980-01-01", "team_ids": ["choir"]}},
				{"id": "p2", "attributes": {"name": "Ben", "birthdate": "unknown", "team_ids": ["choir"]}}
			]}`)
		}))

		page, err := c.ListPeople(context.Background(), 0, 10)
		require.NoError(t, err)
		require.Len(t, page.People, 2)
		assert.Equal(t, models.BirthDate{Year: 1980, Month: 1, Day: 1}, page.People[0].BirthDate)
		assert.False(t, page.People[1].BirthDate.Known())
		assert.Equal(t, "Ben", page.People[1].Name)
		assert.Equal(t, []string{"choir"}, page.People[1].Teams)
	})

	t.Run("record without id is bad data", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"data": [{"id": " ", "attributes": {"name": "Nobody"}}]}`)
		}))

		_, err := c.ListPeople(context.Background(), 0, 10)
		require.Error(t, err)
		assert.Equal(t, CategoryBadData, GetCategory(err))
		assert.False(t, IsRetryable(err))
	})

	t.Run("invalid json is bad data", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"data": [`)
		}))

		_, err := c.ListPeople(context.Background(), 0, 10)
		assert.Equal(t, CategoryBadData, GetCategory(err))
	})
}

func TestRateLimitRetry(t *testing.T) {
	t.Run("honours Retry-After seconds", func(t *testing.T) {
		var hits atomic.Int32
		c, rec := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) == 1 {
				w.Header().Set("Retry-After", "2")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = io.WriteString(w, `{"data": []}`)
		}))

		_, err := c.ListPeople(context.Background(), 0, 10)
		require.NoError(t, err)
		assert.Equal(t, int32(2), hits.Load())
		assert.Equal(t, []time.Duration{2 * time.Second}, rec.waits)
	})

	t.Run("falls back to exponential backoff and gives up after three retries", func(t *testing.T) {
		var hits atomic.Int32
		c, rec := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"errors": [{"status": "429", "title": "Too Many Requests"}]}`)
		}))

		_, err := c.ListPeople(context.Background(), 0, 10)
		require.Error(t, err)
		assert.Equal(t, CategoryRateLimited, GetCategory(err))
		assert.True(t, IsRetryable(err))
		assert.Equal(t, int32(4), hits.Load())
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, rec.waits)
	})

	t.Run("cancellation during the wait stops retrying", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		t.Cleanup(srv.Close)

		c, err := New(srv.URL, withSleep(func(ctx context.Context, _ time.Duration) error {
			return context.Canceled
		}))
		require.NoError(t, err)

		_, err = c.ListPeople(context.Background(), 0, 10)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, CategoryTimeout, GetCategory(err))
	})
}

func TestErrorCategories(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		category Category
	}{
		{"unauthorized", http.StatusUnauthorized, CategoryAuthentication},
		{"forbidden", http.StatusForbidden, CategoryAuthentication},
		{"not found", http.StatusNotFound, CategoryNotFound},
		{"unprocessable", http.StatusUnprocessableEntity, CategoryBadData},
		{"bad request", http.StatusBadRequest, CategoryBadData},
		{"server error", http.StatusInternalServerError, CategoryOutage},
		{"bad gateway", http.StatusBadGateway, CategoryOutage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, `{"errors": [{"status": "x", "title": "Nope", "detail": "details"}]}`)
			}))

			_, err := c.GetPerson(context.Background(), "p1")
			require.Error(t, err)
			assert.Equal(t, tc.category, GetCategory(err))

			var cerr *Error
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tc.status, cerr.Status)
			assert.Equal(t, "Nope: details", cerr.Message)
		})
	}

	t.Run("not found wraps the sentinel", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		_, err := c.CheckInCount(context.Background(), "missing")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("unreachable host is an outage", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c, err := New(url)
		require.NoError(t, err)
		_, err = c.GetPerson(context.Background(), "p1")
		assert.Equal(t, CategoryOutage, GetCategory(err))
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})
}

func TestCheckInCount(t *testing.T) {
	t.Run("returns the count", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/check-ins/v2/people/p9", r.URL.Path)
			_, _ = io.WriteString(w, `{"data": {"id": "p9", "attributes": {"check_in_count": 0}}}`)
		}))

		n, err := c.CheckInCount(context.Background(), "p9")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("missing count is bad data", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"data": {"id": "p9", "attributes": {}}}`)
		}))

		_, err := c.CheckInCount(context.Background(), "p9")
		assert.Equal(t, CategoryBadData, GetCategory(err))
	})
}

func TestUpdatePersonField(t *testing.T) {
	t.Run("sends a JSON:API patch with basic auth", func(t *testing.T) {
		var got updateRequest
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			assert.Equal(t, "/people/v2/people/p1", r.URL.Path)
			assert.Equal(t, contentTypeJSONAPI, r.Header.Get("Content-Type"))
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "app", user)
			assert.Equal(t, "secret", pass)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = io.WriteString(w, `{"data": {"id": "p1", "type": "Person", "attributes": {}}}`)
		}), WithCredentials("app", "secret"))

		err := c.UpdatePersonField(context.Background(), "p1", models.FieldPhone, "5551234567")
		require.NoError(t, err)
		assert.Equal(t, personType, got.Data.Type)
		assert.Equal(t, "p1", got.Data.ID)
		assert.Equal(t, map[string]string{"phone_number": "5551234567"}, got.Data.Attributes)
	})

	t.Run("unsupported field never reaches the server", func(t *testing.T) {
		var hits atomic.Int32
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))

		err := c.UpdatePersonField(context.Background(), "p1", "birthdate", "2000")
		assert.Equal(t, CategoryBadData, GetCategory(err))
		assert.Zero(t, hits.Load())
	})
}

func TestCircuitBreaker(t *testing.T) {
	var hits atomic.Int32
	breaker := circuit.New("directory-test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}), WithBreaker(breaker))

	for range 2 {
		_, err := c.GetPerson(context.Background(), "p1")
		assert.Equal(t, CategoryOutage, GetCategory(err))
	}
	assert.True(t, breaker.IsOpen())

	_, err := c.GetPerson(context.Background(), "p1")
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.Equal(t, int32(2), hits.Load(), "open breaker must fail fast")
}

func TestRetryAfterParsing(t *testing.T) {
	assert.Equal(t, 3*time.Second, retryAfter("3", time.Second))
	assert.Equal(t, time.Second, retryAfter("", time.Second))
	assert.Equal(t, time.Second, retryAfter("soon", time.Second))
	assert.Equal(t, time.Second, retryAfter("-4", time.Second))
	assert.Equal(t, time.Duration(0), retryAfter("0", time.Second))
}
