package wealthfeed

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplainvest/wealthboard/internal/clientdata"
)

const weeklyPayload = `[
	{"Semana": "1.Janeiro", "Captação": 2500000, "Acumulado Semana": 2500000},
	{"Semana": "2.Janeiro", "Captação": "1200000.50", "Acumulado Semana": 3700000.5}
]`

func fastRetry() Option {
	return WithRetryConfig(RetryConfig{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxElapsedTime:  time.Second,
	})
}

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func setupCache(t *testing.T) *clientdata.Repository {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE feed_responses (endpoint TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE chart_ranges (chart TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);`)
	require.NoError(t, err)

	return clientdata.NewRepository(db)
}

func TestFetch_DecodesRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, EndpointWeekly, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(weeklyPayload))
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", nil, testLogger(), fastRetry())
	res, err := c.Fetch(context.Background(), EndpointWeekly)
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.False(t, res.Stale)
	assert.Equal(t, json.Number("2500000"), res.Records[0]["Captação"])

	v, err := res.Records[1].Number("Captação")
	require.NoError(t, err)
	assert.Equal(t, 1200000.5, v)
}

func TestFetch_SingleObjectPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"CUSTODIA TOTAL": 1500000000}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, testLogger(), fastRetry())
	res, err := c.Fetch(context.Background(), EndpointCustody)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.NotNil(t, res.Records[0]["CUSTODIA TOTAL"])
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(weeklyPayload))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, testLogger(), fastRetry())
	res, err := c.Fetch(context.Background(), EndpointWeekly)
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetch_DoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, testLogger(), fastRetry())
	_, err := c.Fetch(context.Background(), EndpointWeekly)
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetch_StaleFallback(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(weeklyPayload))
	}))
	defer server.Close()

	c := NewClient(server.URL, setupCache(t), testLogger(), fastRetry())

	_, err := c.Fetch(context.Background(), EndpointWeekly)
	require.NoError(t, err)

	healthy.Store(false)
	res, err := c.Fetch(context.Background(), EndpointWeekly)
	require.NoError(t, err)
	assert.True(t, res.Stale)
	require.Len(t, res.Records, 2)

	label, err := res.Records[0].String("Semana")
	require.NoError(t, err)
	assert.Equal(t, "1.Janeiro", label)

	v, err := res.Records[0].Number("Captação")
	require.NoError(t, err)
	assert.Equal(t, 2500000.0, v)

	_, err = c.Fetch(context.Background(), EndpointCustody)
	assert.Error(t, err, "nothing cached for this endpoint")
}

func TestFetch_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"Semana": `))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, testLogger(), WithRetryConfig(RetryConfig{}))
	_, err := c.Fetch(context.Background(), EndpointWeekly)
	assert.Error(t, err)
}

func TestFetch_CoalescesConcurrentCalls(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(weeklyPayload))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, testLogger(), fastRetry())

	var wg sync.WaitGroup
	results := make([]Result, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.Fetch(context.Background(), EndpointWeekly)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}

	assert.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	for _, res := range results {
		assert.Len(t, res.Records, 2)
	}
}

func TestFetch_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(weeklyPayload))
	}))
	defer server.Close()
	defer close(release)

	c := NewClient(server.URL, nil, testLogger(), fastRetry())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Fetch(ctx, EndpointWeekly)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetch_NewerCallAfterCancellationStartsFreshRequest(t *testing.T) {
	var hits atomic.Int32
	firstStarted := make(chan struct{})
	firstAborted := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		if n == 1 {
			close(firstStarted)
			select {
			case <-r.Context().Done():
				close(firstAborted)
			case <-time.After(5 * time.Second):
			}
			return
		}
		_, _ = w.Write([]byte(`[{"Semana": "1.Janeiro", "Captação": 2}]`))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, testLogger(), fastRetry())

	ctx, cancel := context.WithCancel(context.Background())
	older := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctx, EndpointWeekly)
		older <- err
	}()

	<-firstStarted
	cancel()
	assert.ErrorIs(t, <-older, context.Canceled)

	res, err := c.Fetch(context.Background(), EndpointWeekly)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	v, err := res.Records[0].Number("Captação")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, int32(2), hits.Load())

	select {
	case <-firstAborted:
	case <-time.After(time.Second):
		t.Fatal("abandoned feed request was not cancelled")
	}
}

func TestFetch_CancelledCallerLeavesOthersWaiting(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(weeklyPayload))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, testLogger(), fastRetry())

	kept := make(chan Result, 1)
	go func() {
		res, err := c.Fetch(context.Background(), EndpointWeekly)
		assert.NoError(t, err)
		kept <- res
	}()
	assert.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Fetch(ctx, EndpointWeekly)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	res := <-kept
	assert.Len(t, res.Records, 2)
}
