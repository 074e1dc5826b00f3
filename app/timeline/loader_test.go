package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/milestone-timeline/app/sheet"
)

const (
	milestonesDoc = `{"status":"ok","table":{
		"cols":[{"label":"id"},{"label":"type"},{"label":"date"},{"label":"title"},{"label":"status"},{"label":"details_summary"}],
		"rows":[
			{"c":[{"v":"start"},{"v":"start"},null,{"v":"START"},{"v":"completed"},null]},
			{"c":[{"v":"m1"},{"v":"procedural"},{"v":"Date(2026,0,21)"},{"v":"FINAL RULE"},{"v":"current"},{"v":"Effective now"}]}
		]}}`
	configDoc = `{"status":"ok","table":{"cols":[{"label":"key"},{"label":"value"}],
		"rows":[{"c":[{"v":"lastUpdated"},{"v":"2026-01-21"}]}]}}`
)

func gviz(doc string) []byte {
	return []byte("/*O_o*/\ngoogle.visualization.Query.setResponse(" + doc + ");")
}

type fakeFetcher struct {
	payloads *sheet.Payloads
	err      error
	calls    atomic.Int32
	delay    time.Duration
}

func (f *fakeFetcher) Run(ctx context.Context, milestonesURL, configURL string) (*sheet.Payloads, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.payloads, f.err
}

type recordingObserver struct {
	mu      sync.Mutex
	results []LoadResult
}

func (o *recordingObserver) ObserveLoad(result LoadResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, result)
}

func TestLoaderLoadEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("sheet") {
		case "milestones":
			w.Write(gviz(milestonesDoc))
		case "config":
			w.Write(gviz(configDoc))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := sheet.NewFetcher(server.Client(), "test")
	loader := NewLoader(fetcher, NewFallbackPolicy(nil), server.URL+"/?sheet=milestones", server.URL+"/?sheet=config")
	observer := &recordingObserver{}
	loader.SetObserver(observer)

	dataset, err := loader.Load(context.Background())
	require.NoError(t, err)

	data, err := json.Marshal(dataset)
	require.NoError(t, err)
	assert.JSONEq(t, `{"lastUpdated":"2026-01-21","milestones":[
		{"id":"start","type":"start","date":null,"title":"START","subtitle":null,"description":null,"status":"completed",
		 "isRisk":false,"isCatalyst":false,"isOutcome":false,"isStatutory":false,"catalystOrder":null},
		{"id":"m1","type":"procedural","date":"2026-01-21","title":"FINAL RULE","subtitle":null,"description":null,"status":"current",
		 "isRisk":false,"isCatalyst":false,"isOutcome":false,"isStatutory":false,"catalystOrder":null,
		 "details":{"summary":"Effective now"}}
	]}`, string(data))

	require.Len(t, observer.results, 1)
	result := observer.results[0]
	assert.False(t, result.Fallback)
	assert.Equal(t, 2, result.Milestones)
	assert.NotEmpty(t, result.AttemptID)
}

func TestLoaderLoadFallsBackOnDecodeFailure(t *testing.T) {
	fetcher := &fakeFetcher{payloads: &sheet.Payloads{
		Milestones: []byte("<html>not a gviz response</html>"),
		Config:     gviz(configDoc),
	}}
	loader := NewLoader(fetcher, NewFallbackPolicy(nil), "m", "c")
	observer := &recordingObserver{}
	loader.SetObserver(observer)

	dataset, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sheet.ErrDecode))
	assert.NotEmpty(t, err.Error())

	require.NotNil(t, dataset)
	require.NotEmpty(t, dataset.Milestones)
	assert.Equal(t, "start", dataset.Milestones[0].ID)
	assert.Equal(t, "completed", dataset.Milestones[0].Status)

	require.Len(t, observer.results, 1)
	assert.True(t, observer.results[0].Fallback)
	assert.Equal(t, FailureDecode, observer.results[0].FailureKind)
}

func TestLoaderLoadIsAllOrNothing(t *testing.T) {
	// Milestones decode fine but the config feed is broken: nothing real is kept.
	fetcher := &fakeFetcher{payloads: &sheet.Payloads{
		Milestones: gviz(milestonesDoc),
		Config:     gviz(`{"status":"error","errors":[{"message":"no such sheet"}]}`),
	}}
	fallback := DefaultFallback()
	loader := NewLoader(fetcher, NewFallbackPolicy(fallback), "m", "c")

	dataset, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config feed")
	assert.Equal(t, fallback, dataset)
	for _, m := range dataset.Milestones {
		assert.NotEqual(t, "m1", m.ID)
	}
}

func TestLoaderLoadFallsBackOnFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.Join(sheet.ErrFetch, errors.New("connection refused"))}
	loader := NewLoader(fetcher, NewFallbackPolicy(nil), "m", "c")

	dataset, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, FailureFetch, FailureKind(err))
	assert.Equal(t, "start", dataset.Milestones[0].ID)
}

func TestLoaderLoadUsesCurrentDateWithoutLastUpdated(t *testing.T) {
	fetcher := &fakeFetcher{payloads: &sheet.Payloads{
		Milestones: gviz(milestonesDoc),
		Config:     gviz(`{"table":{"cols":[{"label":"key"},{"label":"value"}],"rows":[]}}`),
	}}
	loader := NewLoader(fetcher, NewFallbackPolicy(nil), "m", "c")
	loader.now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.Local) }

	dataset, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18", dataset.LastUpdated)
}

func TestLoaderLoadSharesInFlightRun(t *testing.T) {
	fetcher := &fakeFetcher{
		payloads: &sheet.Payloads{Milestones: gviz(milestonesDoc), Config: gviz(configDoc)},
		delay:    100 * time.Millisecond,
	}
	loader := NewLoader(fetcher, NewFallbackPolicy(nil), "m", "c")

	var wg sync.WaitGroup
	datasets := make([]*Dataset, 4)
	for i := range datasets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dataset, err := loader.Load(context.Background())
			assert.NoError(t, err)
			datasets[i] = dataset
		}(i)
	}
	wg.Wait()

	assert.Less(t, fetcher.calls.Load(), int32(len(datasets)))
	for _, dataset := range datasets {
		require.NotNil(t, dataset)
		assert.Len(t, dataset.Milestones, 2)
	}
}

func TestFailureKind(t *testing.T) {
	assert.Equal(t, FailureFetch, FailureKind(sheet.ErrFetch))
	assert.Equal(t, FailureDecode, FailureKind(errors.Join(errors.New("x"), sheet.ErrDecode)))
	assert.Equal(t, FailureNormalization, FailureKind(ErrNormalization))
	assert.Equal(t, FailureUnknown, FailureKind(errors.New("other")))
}
