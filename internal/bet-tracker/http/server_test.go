package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bet-tracker/internal/bet-tracker/repo"
	"github.com/radieske/bet-tracker/internal/betstats"
	"github.com/radieske/bet-tracker/pkg/contracts/events"
)

// memStore é um store em memória com a mesma semântica do Postgres
type memStore struct {
	mu     sync.Mutex
	bets   []betstats.Bet
	nextID int64
	now    time.Time
	lists  int
	err    error

	// afterSnapshot roda uma vez, depois da leitura e antes do retorno,
	// simulando uma escrita concorrente com o cálculo das stats
	afterSnapshot func()
}

func (m *memStore) List(context.Context) ([]betstats.Bet, error) {
	m.mu.Lock()
	m.lists++
	if m.err != nil {
		m.mu.Unlock()
		return nil, m.err
	}
	snapshot := append([]betstats.Bet(nil), m.bets...)
	hook := m.afterSnapshot
	m.afterSnapshot = nil
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return snapshot, nil
}

func (m *memStore) Get(_ context.Context, id int64) (betstats.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bets {
		if b.ID == id {
			return b, nil
		}
	}
	return betstats.Bet{}, repo.ErrNotFound
}

func (m *memStore) Create(_ context.Context, b betstats.Bet) (betstats.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return betstats.Bet{}, m.err
	}
	m.nextID++
	b.ID = m.nextID
	b.Date = m.now
	m.bets = append(m.bets, b)
	return b, nil
}

func (m *memStore) Update(_ context.Context, id int64, b betstats.Bet) (betstats.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.bets {
		if m.bets[i].ID == id {
			cur := &m.bets[i]
			cur.Amount, cur.Odds, cur.Outcome, cur.BetType, cur.BetSource = b.Amount, b.Odds, b.Outcome, b.BetType, b.BetSource
			return *cur, nil
		}
	}
	return betstats.Bet{}, repo.ErrNotFound
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.bets {
		if m.bets[i].ID == id {
			m.bets = append(m.bets[:i], m.bets[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

type memCache struct {
	mu          sync.Mutex
	gen         int64
	entries     map[string][]byte
	invalidated int
}

func newMemCache() *memCache { return &memCache{entries: map[string][]byte{}} }

func cacheKey(gen int64, kind, fp string) string { return fmt.Sprintf("%s:%d:%s", kind, gen, fp) }

func (c *memCache) Get(_ context.Context, kind, fp string, dst any) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[cacheKey(c.gen, kind, fp)]
	if !ok {
		return c.gen, false, nil
	}
	return c.gen, true, json.Unmarshal(b, dst)
}

func (c *memCache) Set(_ context.Context, gen int64, kind, fp string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.entries[cacheKey(gen, kind, fp)] = b
	return nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.invalidated++
	return nil
}

type memHistory map[int64][]repo.HistoryEntry

func (h memHistory) History(_ context.Context, betID int64) ([]repo.HistoryEntry, error) {
	entries, ok := h[betID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return entries, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.BetChanged
	err    error
}

func (p *recordingPublisher) PublishBetChanged(_ context.Context, e events.BetChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type fixture struct {
	store   *memStore
	cache   *memCache
	publ    *recordingPublisher
	history memHistory
	metrics *Metrics
	handler http.Handler
}

var fixedNow = time.Date(2024, time.February, 15, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, bets ...betstats.Bet) *fixture {
	t.Helper()
	f := &fixture{
		store:   &memStore{bets: bets, nextID: int64(len(bets)), now: fixedNow},
		cache:   newMemCache(),
		publ:    &recordingPublisher{},
		history: memHistory{},
	}
	f.metrics = NewMetrics(prometheus.NewRegistry())
	srv := NewServer(zap.NewNop(), f.store, Options{
		Cache:     f.cache,
		Publisher: f.publ,
		History:   f.history,
		Metrics:   f.metrics,
	})
	srv.Now = func() time.Time { return fixedNow }
	f.handler = srv.Router()
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func day(m time.Month, d int) time.Time { return time.Date(2024, m, d, 15, 0, 0, 0, time.UTC) }

func seed() []betstats.Bet {
	return []betstats.Bet{
		{ID: 1, Amount: 10, Odds: 2.0, Outcome: betstats.OutcomeWin, Sport: "NBA", BetType: "Moneyline", BetSource: "DraftKings", Date: day(time.February, 2)},
		{ID: 2, Amount: 20, Odds: 1.5, Outcome: betstats.OutcomeLoss, Sport: "NFL", BetType: "Spread", BetSource: "FanDuel", Date: day(time.February, 14)},
		{ID: 3, Amount: 5, Odds: 3.0, Outcome: betstats.OutcomePush, Sport: "NBA", BetType: "Spread", BetSource: "FanDuel", Date: day(time.February, 15)},
		{ID: 4, Amount: 50, Odds: 1.8, Outcome: betstats.OutcomeWin, Sport: "NHL", BetType: "Total", BetSource: "BetMGM", Date: day(time.January, 10)},
	}
}

func TestStats(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"empty filters over everything", "/stats",
			`{"totalBets":4,"wins":2,"losses":1,"pushes":1,"winRate":"66.67","totalProfitLoss":"30.00","roi":"35.29"}`},
		{"month excludes january", "/stats?range=month&sport=all&betType=all&betSource=all",
			`{"totalBets":3,"wins":1,"losses":1,"pushes":1,"winRate":"50.00","totalProfitLoss":"-10.00","roi":"-28.57"}`},
		{"today", "/stats?range=today",
			`{"totalBets":1,"wins":0,"losses":0,"pushes":1,"winRate":"0.00","totalProfitLoss":"0.00","roi":"0.00"}`},
		{"category filter", "/stats?range=all&betType=Spread&betSource=FanDuel",
			`{"totalBets":2,"wins":0,"losses":1,"pushes":1,"winRate":"0.00","totalProfitLoss":"-20.00","roi":"-80.00"}`},
		{"unknown range behaves as all", "/stats?range=decade&sport=NHL",
			`{"totalBets":1,"wins":1,"losses":0,"pushes":0,"winRate":"100.00","totalProfitLoss":"40.00","roi":"80.00"}`},
		{"no match", "/stats?sport=MLB",
			`{"totalBets":0,"wins":0,"losses":0,"pushes":0,"winRate":"0.00","totalProfitLoss":"0.00","roi":"0.00"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, seed()...)
			rec := f.do(http.MethodGet, tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestStats_ServedFromCacheUntilWrite(t *testing.T) {
	f := newFixture(t, seed()...)

	first := f.do(http.MethodGet, "/stats?range=month", "")
	second := f.do(http.MethodGet, "/stats?range=month", "")
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, f.store.lists)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheLookups.WithLabelValues("stats", "hit")))

	rec := f.do(http.MethodPost, "/bets", `{"amount":10,"odds":2,"outcome":"win","sport":"NBA","betType":"Spread","betSource":"FanDuel"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	third := f.do(http.MethodGet, "/stats?range=month", "")
	assert.Equal(t, 2, f.store.lists)
	assert.JSONEq(t, `{"totalBets":4,"wins":2,"losses":1,"pushes":1,"winRate":"66.67","totalProfitLoss":"0.00","roi":"0.00"}`, third.Body.String())
}

func TestStats_WriteDuringComputationIsNotCached(t *testing.T) {
	f := newFixture(t, seed()...)
	f.store.afterSnapshot = func() {
		rec := f.do(http.MethodPost, "/bets", `{"amount":10,"odds":2,"outcome":"win","sport":"NBA","betType":"Spread","betSource":"FanDuel"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	// calculada sobre o snapshot anterior à escrita
	stale := f.do(http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, stale.Code)
	assert.Contains(t, stale.Body.String(), `"totalBets":4`)

	fresh := f.do(http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, fresh.Code)
	assert.Contains(t, fresh.Body.String(), `"totalBets":5`)
	assert.Equal(t, 2, f.store.lists)
}

func TestFilters_WriteDuringComputationIsNotCached(t *testing.T) {
	f := newFixture(t, seed()...)
	f.store.afterSnapshot = func() {
		rec := f.do(http.MethodPost, "/bets", `{"amount":10,"odds":2,"outcome":"win","sport":"MLB","betType":"Spread","betSource":"FanDuel"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	f.do(http.MethodGet, "/filters", "")
	rec := f.do(http.MethodGet, "/filters", "")
	assert.Contains(t, rec.Body.String(), `"MLB"`)
}

func TestFilters(t *testing.T) {
	f := newFixture(t, seed()...)

	rec := f.do(http.MethodGet, "/filters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sports":["NBA","NFL","NHL"],"betTypes":["Moneyline","Spread","Total"],"betSources":["DraftKings","FanDuel","BetMGM"]}`, rec.Body.String())

	empty := newFixture(t)
	rec = empty.do(http.MethodGet, "/filters", "")
	assert.JSONEq(t, `{"sports":[],"betTypes":[],"betSources":[]}`, rec.Body.String())
}

func TestCreateBet(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/bets", `{"amount":"12.5","odds":1.91,"outcome":"loss","sport":"NBA","betType":"Spread","betSource":"FanDuel"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":1}`, rec.Body.String())

	require.Len(t, f.store.bets, 1)
	assert.Equal(t, fixedNow, f.store.bets[0].Date)
	assert.Equal(t, 1, f.cache.invalidated)

	require.Len(t, f.publ.events, 1)
	ev := f.publ.events[0]
	assert.Equal(t, events.ActionCreated, ev.Action)
	assert.Equal(t, int64(1), ev.BetID)
	require.NotNil(t, ev.Bet)
	assert.Equal(t, "loss", ev.Bet.Outcome)
}

func TestCreateBet_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing field", `{"amount":10,"odds":2,"outcome":"win","sport":"NBA","betType":"Spread"}`, `{"error":"Missing required fields"}`},
		{"unparseable amount", `{"amount":"ten","odds":2,"outcome":"win","sport":"NBA","betType":"Spread","betSource":"x"}`, `{"error":"invalid number \"ten\""}`},
		{"bad json", `{"amount":`, `{"error":"invalid request body"}`},
		{"bad outcome", `{"amount":1,"odds":2,"outcome":"maybe","sport":"NBA","betType":"Spread","betSource":"x"}`, `{"error":"outcome must be one of win, loss, push"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(http.MethodPost, "/bets", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
			assert.Empty(t, f.store.bets)
			assert.Empty(t, f.publ.events)
		})
	}
}

func TestCreateBet_PublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.publ.err = errors.New("kafka down")

	rec := f.do(http.MethodPost, "/bets", `{"amount":1,"odds":2,"outcome":"win","sport":"NBA","betType":"Spread","betSource":"x"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestUpdateBet(t *testing.T) {
	f := newFixture(t, seed()...)

	rec := f.do(http.MethodPut, "/bets/2", `{"id":2,"amount":"25","odds":"1.5","outcome":"win","sport":"MLB","betType":"Total","betSource":"BetMGM"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Bet updated successfully"}`, rec.Body.String())

	got := f.do(http.MethodGet, "/bets/2", "")
	require.Equal(t, http.StatusOK, got.Code)
	var bet betstats.Bet
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &bet))
	assert.Equal(t, "NFL", bet.Sport, "sport is not updatable")
	assert.Equal(t, betstats.OutcomeWin, bet.Outcome)
	assert.InDelta(t, 25.0, bet.Amount, 1e-9)
	assert.Equal(t, events.ActionUpdated, f.publ.events[0].Action)
}

func TestUpdateBet_Errors(t *testing.T) {
	f := newFixture(t, seed()...)

	rec := f.do(http.MethodPut, "/bets/99", `{"amount":1,"odds":2,"outcome":"win","betType":"x","betSource":"y"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Bet not found"}`, rec.Body.String())

	rec = f.do(http.MethodPut, "/bets/1", `{"amount":1,"odds":2,"outcome":"win"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing required fields"}`, rec.Body.String())

	rec = f.do(http.MethodPut, "/bets/abc", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, f.publ.events)
	assert.Zero(t, f.cache.invalidated)
}

func TestDeleteBet(t *testing.T) {
	f := newFixture(t, seed()...)

	rec := f.do(http.MethodDelete, "/bets/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Bet removed successfully"}`, rec.Body.String())
	require.Len(t, f.publ.events, 1)
	assert.Equal(t, events.ActionDeleted, f.publ.events[0].Action)
	assert.Nil(t, f.publ.events[0].Bet)

	rec = f.do(http.MethodDelete, "/bets/3", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodDelete, "/bets/0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListBets(t *testing.T) {
	f := newFixture(t, seed()...)

	rec := f.do(http.MethodGet, "/bets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var bets []betstats.Bet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bets))
	require.Len(t, bets, 4)
	assert.Equal(t, int64(1), bets[0].ID)
	assert.Equal(t, "DraftKings", bets[0].BetSource)
}

func TestStoreFailureIsInternalError(t *testing.T) {
	f := newFixture(t)
	f.store.err = errors.New("connection refused")

	rec := f.do(http.MethodGet, "/stats", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Requests.WithLabelValues("/stats", "GET", "500")))
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/bets/1", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBetHistory(t *testing.T) {
	f := newFixture(t, seed()...)
	f.history[3] = []repo.HistoryEntry{
		{EventID: "e-1", Action: "created", Bet: json.RawMessage(`{"id":3}`), OccurredAt: day(time.February, 15)},
		{EventID: "e-2", Action: "deleted", OccurredAt: day(time.February, 16)},
	}

	rec := f.do(http.MethodGet, "/bets/3/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"eventId":"e-1","action":"created","bet":{"id":3},"occurredAt":"2024-02-15T15:00:00Z"},
		{"eventId":"e-2","action":"deleted","occurredAt":"2024-02-16T15:00:00Z"}
	]`, rec.Body.String())

	rec = f.do(http.MethodGet, "/bets/9/history", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Bet not found"}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/bets/x/history", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
