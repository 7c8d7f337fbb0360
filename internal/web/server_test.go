package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/runixer/mediagrab/internal/config"
	"github.com/runixer/mediagrab/internal/storage"
	"github.com/runixer/mediagrab/internal/testutil"
)

func newTestServer(t *testing.T, journal storage.DownloadReader, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := testutil.TestConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	return NewServer(testutil.TestLogger(), cfg, journal)
}

func get(t *testing.T, s *Server, path string, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := get(t, s, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil, nil)
	before := testutil.ScrapeHandler(t, s.Handler(), "/metrics")

	get(t, s, "/healthz")

	after := testutil.ScrapeHandler(t, s.Handler(), "/metrics")
	testutil.AssertMetricExists(t, after, "mediagrab_http_requests_total")
	testutil.AssertMetricIncremented(t, before, after, "mediagrab_http_requests_total",
		map[string]string{"handler": "healthz", "method": "GET", "status": "200"}, 1)
}

func TestAPI_NotMountedWithoutJournal(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := get(t, s, "/api/downloads")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadsHandler(t *testing.T) {
	finished := time.Date(2024, 5, 17, 14, 30, 0, 0, time.UTC)
	records := []storage.DownloadRecord{testutil.TestDownloadRecord("b1", finished)}

	t.Run("lists with filter", func(t *testing.T) {
		journal := new(testutil.MockJournal)
		journal.On("RecentDownloads", mock.Anything, storage.DownloadFilter{GuildID: "g-100", Limit: 10}).Return(records, nil).Once()
		s := newTestServer(t, journal, nil)

		rec := get(t, s, "/api/downloads?guild_id=g-100&limit=10")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var resp downloadsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Downloads, 1)
		assert.Equal(t, "b1", resp.Downloads[0].ID)
		assert.Equal(t, "Images", resp.Downloads[0].Option)
		assert.True(t, resp.Downloads[0].FinishedAt.Equal(finished))
		journal.AssertExpectations(t)
	})

	t.Run("empty journal is an empty list", func(t *testing.T) {
		journal := new(testutil.MockJournal)
		journal.On("RecentDownloads", mock.Anything, storage.DownloadFilter{}).Return(nil, nil)
		s := newTestServer(t, journal, nil)

		rec := get(t, s, "/api/downloads")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"downloads":[]}`, rec.Body.String())
	})

	t.Run("invalid limit", func(t *testing.T) {
		journal := new(testutil.MockJournal)
		s := newTestServer(t, journal, nil)

		rec := get(t, s, "/api/downloads?limit=-1")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid limit")
		journal.AssertNotCalled(t, "RecentDownloads", mock.Anything, mock.Anything)
	})

	t.Run("storage error", func(t *testing.T) {
		journal := new(testutil.MockJournal)
		journal.On("RecentDownloads", mock.Anything, mock.Anything).Return(nil, errors.New("database is locked"))
		s := newTestServer(t, journal, nil)

		rec := get(t, s, "/api/downloads")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "locked")
	})
}

func TestSummaryHandler(t *testing.T) {
	sum := storage.Summary{Batches: 3, Succeeded: 7, Failed: 1, Bytes: 2_621_440}

	t.Run("whole journal", func(t *testing.T) {
		journal := new(testutil.MockJournal)
		journal.On("DownloadSummary", mock.Anything, time.Time{}).Return(sum, nil).Once()
		s := newTestServer(t, journal, nil)

		rec := get(t, s, "/api/downloads/summary")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"batches":3,"succeeded":7,"failed":1,"bytes":2621440,"size":"2.5 MiB"}`, rec.Body.String())
	})

	t.Run("since window", func(t *testing.T) {
		journal := new(testutil.MockJournal)
		journal.On("DownloadSummary", mock.Anything, mock.MatchedBy(func(since time.Time) bool {
			age := time.Since(since)
			return age >= 24*time.Hour && age < 24*time.Hour+time.Minute
		})).Return(sum, nil).Once()
		s := newTestServer(t, journal, nil)

		rec := get(t, s, "/api/downloads/summary?since=24h")

		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp["since"])
		journal.AssertExpectations(t)
	})

	t.Run("invalid since", func(t *testing.T) {
		s := newTestServer(t, new(testutil.MockJournal), nil)

		rec := get(t, s, "/api/downloads/summary?since=yesterday")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBasicAuth(t *testing.T) {
	journal := new(testutil.MockJournal)
	journal.On("RecentDownloads", mock.Anything, mock.Anything).Return([]storage.DownloadRecord{}, nil)
	s := newTestServer(t, journal, func(c *config.Config) {
		c.Server.Auth.Enabled = true
		c.Server.Auth.Username = "admin"
		c.Server.Auth.Password = "secret"
	})

	tests := []struct {
		name       string
		user, pass string
		setAuth    bool
		wantStatus int
	}{
		{"no credentials", "", "", false, http.StatusUnauthorized},
		{"wrong password", "admin", "nope", true, http.StatusUnauthorized},
		{"valid", "admin", "secret", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, "/api/downloads", func(r *http.Request) {
				if tt.setAuth {
					r.SetBasicAuth(tt.user, tt.pass)
				}
			})
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}

	// Health stays public.
	assert.Equal(t, http.StatusOK, get(t, s, "/healthz").Code)
}

func TestRateLimit(t *testing.T) {
	journal := new(testutil.MockJournal)
	journal.On("RecentDownloads", mock.Anything, mock.Anything).Return([]storage.DownloadRecord{}, nil)
	s := newTestServer(t, journal, func(c *config.Config) {
		c.Server.RateLimit = 2
	})

	fromIP := func(ip string) func(*http.Request) {
		return func(r *http.Request) { r.RemoteAddr = ip + ":40000" }
	}

	assert.Equal(t, http.StatusOK, get(t, s, "/api/downloads", fromIP("198.51.100.7")).Code)
	assert.Equal(t, http.StatusOK, get(t, s, "/api/downloads", fromIP("198.51.100.7")).Code)

	rec := get(t, s, "/api/downloads", fromIP("198.51.100.7"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "too many requests")

	// Other clients have their own budget.
	assert.Equal(t, http.StatusOK, get(t, s, "/api/downloads", fromIP("198.51.100.8")).Code)
}
