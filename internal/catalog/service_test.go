package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// memoryStore aplica los mismos filtros que el repositorio sobre una lista en memoria.
type memoryStore struct {
	items []Item
	err   error
	calls int
}

func (store *memoryStore) Search(ctx context.Context, query Query) ([]Item, int, error) {
	store.calls++
	if store.err != nil {
		return nil, 0, store.err
	}

	var matched []Item
	for _, item := range store.items {
		if matchesQuery(item, query) {
			matched = append(matched, item)
		}
	}
	slices.SortFunc(matched, func(a, b Item) int { return int(a.ID - b.ID) })

	total := len(matched)
	if query.Offset >= total {
		return []Item{}, total, nil
	}
	end := min(query.Offset+query.Limit, total)
	return matched[query.Offset:end], total, nil
}

func (store *memoryStore) GetByID(ctx context.Context, id int64) (Item, error) {
	if store.err != nil {
		return Item{}, store.err
	}
	for _, item := range store.items {
		if item.ID == id {
			return item, nil
		}
	}
	return Item{}, ErrorNotFound
}

func matchesQuery(item Item, query Query) bool {
	if query.Text != "" {
		text := strings.ToLower(query.Text)
		haystack := strings.ToLower(item.ItemName + " " + deref(item.SKU) + " " + deref(item.Description))
		if !strings.Contains(haystack, text) {
			return false
		}
	}
	if len(query.Categories) > 0 {
		levels := []string{deref(item.Category1), deref(item.Category2), deref(item.Category3)}
		if !slices.ContainsFunc(levels, func(level string) bool { return slices.Contains(query.Categories, level) }) {
			return false
		}
	}
	if len(query.PriceBuckets) > 0 {
		if item.Price == nil {
			return false
		}
		if !slices.ContainsFunc(query.PriceBuckets, func(bucket PriceBucket) bool { return bucket.Contains(item.Price.Decimal) }) {
			return false
		}
	}
	return true
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

type stubFallback struct {
	response UpstreamResponse
	err      error
	calls    int
}

func (fallback *stubFallback) Search(ctx context.Context, query Query) (UpstreamResponse, error) {
	fallback.calls++
	return fallback.response, fallback.err
}

// hangingStore simula una base que no responde: bloquea hasta que vence el contexto.
type hangingStore struct {
	memoryStore
}

func (store *hangingStore) Search(ctx context.Context, query Query) ([]Item, int, error) {
	<-ctx.Done()
	return nil, 0, ctx.Err()
}

// contextFallback registra el estado del contexto que recibe el upstream.
type contextFallback struct {
	stubFallback
	ctxErr      error
	hasDeadline bool
}

func (fallback *contextFallback) Search(ctx context.Context, query Query) (UpstreamResponse, error) {
	fallback.ctxErr = ctx.Err()
	_, fallback.hasDeadline = ctx.Deadline()
	return fallback.stubFallback.Search(ctx, query)
}

func ptr[T any](value T) *T {
	return &value
}

func priced(id int64, name, category, price string) Item {
	return Item{
		ID:        id,
		SKU:       ptr(strings.ToUpper(name[:3]) + "-" + decimal.NewFromInt(id).String()),
		ItemName:  name,
		Category3: ptr(category),
		Price:     &Money{Decimal: decimal.RequireFromString(price)},
	}
}

func seededStore(count int) *memoryStore {
	store := &memoryStore{}
	for id := int64(1); id <= int64(count); id++ {
		store.items = append(store.items, priced(id, "Specimen", "Specimens", "10"))
	}
	return store
}

func newTestService(store Store, fallback Fallback, opts ...ServiceOption) (*Service, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	return NewService(DefaultOptions(), store, fallback, logger, opts...), hook
}

func TestService_Search_Primary(t *testing.T) {
	store := seededStore(45)
	fallback := &stubFallback{}
	service, hook := newTestService(store, fallback)

	result := service.Search(context.Background(), Query{Limit: 20, Offset: 40})

	require.Equal(t, KindOK, result.Kind)
	require.Equal(t, SourceDatabase, result.Source)
	require.Equal(t, http.StatusOK, result.Status)
	require.True(t, result.Page.Success)
	require.Len(t, result.Page.Data, 5)
	require.Equal(t, 5, result.Page.Count)
	require.Equal(t, 45, result.Page.TotalCount)
	require.Equal(t, 20, result.Page.Limit)
	require.Equal(t, 40, result.Page.Offset)
	require.Zero(t, fallback.calls)
	require.Empty(t, hook.AllEntries())
}

func TestService_Search_CountMatchesData(t *testing.T) {
	service, _ := newTestService(seededStore(45), nil)

	for _, raw := range []string{"", "limit=50", "limit=100&page=2", "offset=44", "offset=45", "offset=1000", "page=3"} {
		t.Run(raw, func(t *testing.T) {
			values, err := url.ParseQuery(raw)
			require.NoError(t, err)

			page := service.Search(context.Background(), service.ParseQuery(values)).Page

			require.Equal(t, len(page.Data), page.Count)
			require.Equal(t, 45, page.TotalCount)
			require.LessOrEqual(t, page.Count, page.Limit)
			require.NotNil(t, page.Data)
		})
	}
}

func TestService_Search_FilterComposition(t *testing.T) {
	store := &memoryStore{items: []Item{
		priced(1, "Frog", "Specimens", "49.99"),
		priced(2, "Frog XL", "Specimens", "50.00"),
		priced(3, "Scalpel", "Dissecting Kits", "12"),
		priced(4, "Microscope", "Optics", "1200"),
	}}
	service, _ := newTestService(store, nil)

	search := func(raw string) []int64 {
		values, err := url.ParseQuery(raw)
		require.NoError(t, err)
		page := service.Search(context.Background(), service.ParseQuery(values)).Page
		ids := make([]int64, 0, len(page.Data))
		for _, item := range page.Data {
			ids = append(ids, item.ID)
		}
		return ids
	}

	require.Equal(t, []int64{1}, search("priceBuckets=under-50&categories=Specimens"))
	require.Equal(t, []int64{2}, search("priceBuckets=50-99"))
	require.Equal(t, []int64{1, 3}, search("priceBuckets=under-50"))
	require.Equal(t, []int64{1, 2, 4}, search("priceBuckets=50-99,under-50,250-plus&q=o"))
	require.Equal(t, []int64{3}, search("categories=Optics,Dissecting%20Kits&priceBuckets=under-50"))
	require.Equal(t, search(""), search("priceBuckets=bogus"))
	require.Equal(t, search("q=frog"), search("q=frog"))
}

func TestService_Search_Fallback(t *testing.T) {
	upstreamPage := newPage([]Item{priced(9, "Frog", "Specimens", "18.5")}, 30, 20, 0)
	fallback := &stubFallback{response: UpstreamResponse{Page: &upstreamPage}}
	service, hook := newTestService(&memoryStore{err: errors.New("connection refused")}, fallback)

	result := service.Search(context.Background(), Query{Limit: 20})

	require.Equal(t, KindDegraded, result.Kind)
	require.Equal(t, SourceUpstream, result.Source)
	require.Equal(t, http.StatusOK, result.Status)
	require.Equal(t, upstreamPage, result.Page)
	require.Equal(t, 1, fallback.calls)

	require.NotEmpty(t, hook.AllEntries())
	require.Equal(t, logrus.WarnLevel, hook.AllEntries()[0].Level)
}

func TestService_Search_FallbackRaw(t *testing.T) {
	raw := RawBody{Status: http.StatusOK, ContentType: "text/plain", Body: []byte("read-only")}
	fallback := &stubFallback{response: UpstreamResponse{Raw: &raw}}
	service, _ := newTestService(&memoryStore{err: errors.New("down")}, fallback)

	result := service.Search(context.Background(), Query{Limit: 20})

	require.Equal(t, KindDegraded, result.Kind)
	require.Equal(t, &raw, result.Raw)
	require.Equal(t, http.StatusOK, result.Status)
}

func TestService_Search_PrimaryTimeoutFallsBack(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"itemName":"Frog","sku":"F-1"}]`))
	}))
	defer upstream.Close()

	service, hook := newTestService(&hangingStore{}, NewUpstreamClient(upstream.URL, 2*time.Second),
		WithPrimaryTimeout(50*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result := service.Search(ctx, Query{Limit: 20})

	require.Equal(t, KindDegraded, result.Kind)
	require.Equal(t, SourceUpstream, result.Source)
	require.Equal(t, http.StatusOK, result.Status)
	require.Len(t, result.Page.Data, 1)
	require.Equal(t, "Frog", result.Page.Data[0].ItemName)
	require.ErrorIs(t, hook.AllEntries()[0].Data[logrus.ErrorKey].(error), context.DeadlineExceeded)
}

func TestService_Search_RequestDeadlineSpentByPrimary(t *testing.T) {
	fallback := &contextFallback{stubFallback: stubFallback{response: UpstreamResponse{Page: &Page{Success: true, Data: []Item{}}}}}
	service, _ := newTestService(&hangingStore{}, fallback, WithPrimaryTimeout(0))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result := service.Search(ctx, Query{Limit: 20})

	require.Equal(t, KindDegraded, result.Kind)
	require.Equal(t, 1, fallback.calls)
	require.NoError(t, fallback.ctxErr)
	require.False(t, fallback.hasDeadline)
}

func TestService_Search_ClientGoneSkipsUpstreamWork(t *testing.T) {
	fallback := &contextFallback{stubFallback: stubFallback{err: context.Canceled}}
	service, _ := newTestService(&memoryStore{err: context.Canceled}, fallback)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := service.Search(ctx, Query{Limit: 20})

	require.Equal(t, KindFailed, result.Kind)
	require.ErrorIs(t, fallback.ctxErr, context.Canceled)
}

func TestService_Search_Failures(t *testing.T) {
	primaryErr := errors.New("connection refused")

	tests := []struct {
		name       string
		fallback   Fallback
		wantStatus int
	}{
		{name: "no fallback", fallback: nil, wantStatus: http.StatusInternalServerError},
		{name: "fallback not configured", fallback: NewUpstreamClient("", 0), wantStatus: http.StatusInternalServerError},
		{name: "fallback unavailable", fallback: &stubFallback{err: ErrorUpstreamUnavailable}, wantStatus: http.StatusBadGateway},
		{name: "fallback bad status", fallback: &stubFallback{err: ErrorUpstreamStatus}, wantStatus: http.StatusBadGateway},
		{name: "fallback malformed", fallback: &stubFallback{err: ErrorUpstreamMalformed}, wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newTestService(&memoryStore{err: primaryErr}, tt.fallback)

			result := service.Search(context.Background(), Query{Limit: 50, Offset: 100})

			require.Equal(t, KindFailed, result.Kind)
			require.Equal(t, tt.wantStatus, result.Status)
			require.ErrorIs(t, result.Err, primaryErr)
			require.False(t, result.Page.Success)
			require.NotNil(t, result.Page.Data)
			require.Empty(t, result.Page.Data)
			require.Zero(t, result.Page.Count)
			require.Zero(t, result.Page.TotalCount)
			require.Equal(t, 50, result.Page.Limit)
			require.Equal(t, 100, result.Page.Offset)
			require.Equal(t, searchFailedMessage, result.Page.Error)
			require.Empty(t, result.Page.Details)
		})
	}
}

func TestService_Search_ErrorDetails(t *testing.T) {
	fallback := &stubFallback{err: ErrorUpstreamUnavailable}
	service, _ := newTestService(&memoryStore{err: errors.New("connection refused")}, fallback, WithErrorDetails(true))

	result := service.Search(context.Background(), Query{Limit: 20})

	require.True(t, service.ExposesDetails())
	require.Contains(t, result.Page.Details, "connection refused")
	require.Contains(t, result.Page.Details, ErrorUpstreamUnavailable.Error())
}

func TestService_Get(t *testing.T) {
	complete := priced(1, "Frog", "Specimens", "18.5")
	noSKU := priced(2, "Frog", "Specimens", "18.5")
	noSKU.SKU = ptr("  ")
	noName := priced(3, "Frog", "Specimens", "18.5")
	noName.ItemName = ""
	store := &memoryStore{items: []Item{complete, noSKU, noName}}
	service, hook := newTestService(store, nil)

	item, err := service.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, complete, item)

	_, err = service.Get(context.Background(), 2)
	require.ErrorIs(t, err, ErrorCorruptedData)
	require.Contains(t, err.Error(), "sku")

	_, err = service.Get(context.Background(), 3)
	require.ErrorIs(t, err, ErrorCorruptedData)
	require.Contains(t, err.Error(), "itemName")
	require.Len(t, hook.AllEntries(), 2)

	_, err = service.Get(context.Background(), 99)
	require.ErrorIs(t, err, ErrorNotFound)
}
