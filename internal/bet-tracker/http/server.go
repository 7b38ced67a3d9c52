package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/radieske/bet-tracker/internal/bet-tracker/cache"
	"github.com/radieske/bet-tracker/internal/bet-tracker/dto"
	"github.com/radieske/bet-tracker/internal/bet-tracker/repo"
	"github.com/radieske/bet-tracker/internal/betstats"
	"github.com/radieske/bet-tracker/pkg/contracts/events"
)

const storeTimeout = 5 * time.Second

// Store define as operações do repositório de apostas usadas pelos handlers
type Store interface {
	List(ctx context.Context) ([]betstats.Bet, error)
	Get(ctx context.Context, id int64) (betstats.Bet, error)
	Create(ctx context.Context, b betstats.Bet) (betstats.Bet, error)
	Update(ctx context.Context, id int64, b betstats.Bet) (betstats.Bet, error)
	Delete(ctx context.Context, id int64) error
}

// Cache guarda respostas já calculadas de /stats e /filters
type Cache interface {
	// Get retorna também a geração lida, usada depois no Set de um miss
	Get(ctx context.Context, kind, fingerprint string, dst any) (int64, bool, error)
	Set(ctx context.Context, gen int64, kind, fingerprint string, v any) error
	Invalidate(ctx context.Context) error
}

// HistoryStore lê a trilha de auditoria gravada pelo worker
type HistoryStore interface {
	History(ctx context.Context, betID int64) ([]repo.HistoryEntry, error)
}

type Publisher interface {
	PublishBetChanged(ctx context.Context, e events.BetChanged) error
}

// Options são as dependências opcionais do Server
type Options struct {
	Cache       Cache        // nil = sem cache
	Publisher   Publisher    // nil = não publica alterações
	History     HistoryStore // nil = sem /bets/{id}/history
	Feed        http.Handler // handler do WebSocket em /ws
	Metrics     *Metrics
	CORSOrigins []string
}

// Server expõe a API REST do bet tracker
type Server struct {
	log   *zap.Logger
	store Store
	opts  Options

	// Now é o relógio usado para resolver os ranges de data
	Now func() time.Time
}

func NewServer(log *zap.Logger, store Store, opts Options) *Server {
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Server{log: log, store: store, opts: opts, Now: time.Now}
}

// Router retorna o roteador HTTP com todos os endpoints
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if s.opts.Metrics != nil {
		r.Use(s.opts.Metrics.instrument)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/bets", func(r chi.Router) {
		r.Post("/", s.createBet)
		r.Get("/", s.listBets)
		r.Get("/{id}", s.getBet)
		r.Put("/{id}", s.updateBet)
		r.Delete("/{id}", s.deleteBet)
		if s.opts.History != nil {
			r.Get("/{id}/history", s.getHistory)
		}
	})
	r.Get("/stats", s.getStats)
	r.Get("/filters", s.getFilters)
	if s.opts.Feed != nil {
		r.Handle("/ws", s.opts.Feed)
	}
	return r
}

// createBet cria uma aposta; a data é carimbada pelo store
func (s *Server) createBet(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err)
		return
	}
	bet, err := req.ToBet()
	if err != nil {
		badRequest(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	created, err := s.store.Create(ctx, bet)
	if err != nil {
		s.internalError(w, "create bet", err)
		return
	}
	s.afterWrite(ctx, events.ActionCreated, created.ID, &created)

	writeJSON(w, http.StatusCreated, dto.CreateBetResponse{ID: created.ID})
}

// listBets retorna todas as apostas
func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	bets, err := s.store.List(ctx)
	if err != nil {
		s.internalError(w, "list bets", err)
		return
	}
	writeJSON(w, http.StatusOK, bets)
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	id, ok := betID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	bet, err := s.store.Get(ctx, id)
	if err != nil {
		s.storeError(w, "get bet", err)
		return
	}
	writeJSON(w, http.StatusOK, bet)
}

// updateBet altera amount, odds, outcome, betType e betSource
func (s *Server) updateBet(w http.ResponseWriter, r *http.Request) {
	id, ok := betID(w, r)
	if !ok {
		return
	}
	var req dto.UpdateBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err)
		return
	}
	bet, err := req.ToBet()
	if err != nil {
		badRequest(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	updated, err := s.store.Update(ctx, id, bet)
	if err != nil {
		s.storeError(w, "update bet", err)
		return
	}
	s.afterWrite(ctx, events.ActionUpdated, id, &updated)

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Bet updated successfully"})
}

func (s *Server) deleteBet(w http.ResponseWriter, r *http.Request) {
	id, ok := betID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, id); err != nil {
		s.storeError(w, "delete bet", err)
		return
	}
	s.afterWrite(ctx, events.ActionDeleted, id, nil)

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Bet removed successfully"})
}

// getHistory lista as alterações registradas de uma aposta, inclusive removida
func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := betID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	entries, err := s.opts.History.History(ctx, id)
	if err != nil {
		s.storeError(w, "bet history", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// getStats resolve range + filtros, filtra o snapshot e agrega
func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	q := dto.ParseStatsQuery(r.URL.Query())
	if q.Range != "" && !betstats.Known(q.Range) {
		s.log.Debug("unknown range keyword, using all", zap.String("range", q.Range))
	}
	crit := q.Criteria(s.Now())
	fp := dto.CacheKey(crit)

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	var resp dto.StatsResponse
	lookup := s.cacheGet(ctx, cache.KindStats, fp, &resp)
	if lookup.hit {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	bets, err := s.store.List(ctx)
	if err != nil {
		s.internalError(w, "stats snapshot", err)
		return
	}

	start := time.Now()
	summary := betstats.Aggregate(betstats.Filter(bets, crit))
	if s.opts.Metrics != nil {
		s.opts.Metrics.StatsDuration.Observe(time.Since(start).Seconds())
	}

	resp = dto.NewStatsResponse(summary)
	s.cacheSet(ctx, lookup, cache.KindStats, fp, resp)
	writeJSON(w, http.StatusOK, resp)
}

// getFilters lista os valores distintos de cada categoria
func (s *Server) getFilters(w http.ResponseWriter, r *http.Request) {
	const fp = "all"

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	var resp dto.FiltersResponse
	lookup := s.cacheGet(ctx, cache.KindFilters, fp, &resp)
	if lookup.hit {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	bets, err := s.store.List(ctx)
	if err != nil {
		s.internalError(w, "filters snapshot", err)
		return
	}

	resp = betstats.BuildCatalog(bets)
	s.cacheSet(ctx, lookup, cache.KindFilters, fp, resp)
	writeJSON(w, http.StatusOK, resp)
}

// afterWrite invalida o cache e publica a alteração. Falhas aqui não
// derrubam a requisição: a escrita já foi feita.
func (s *Server) afterWrite(ctx context.Context, action events.Action, id int64, bet *betstats.Bet) {
	if s.opts.Cache != nil {
		if err := s.opts.Cache.Invalidate(ctx); err != nil {
			s.log.Warn("cache invalidate failed", zap.Error(err))
		}
	}
	if s.opts.Publisher == nil {
		return
	}
	ev := events.BetChanged{Action: action, BetID: id}
	if bet != nil {
		ev.Bet = toEventBet(*bet)
	}
	if err := s.opts.Publisher.PublishBetChanged(ctx, ev); err != nil {
		s.log.Warn("publish bet change failed",
			zap.String("action", string(action)),
			zap.Int64("betId", id),
			zap.Error(err),
		)
	}
}

// cacheLookup guarda o resultado de uma consulta ao cache. fillable só é true
// quando a geração foi lida com sucesso.
type cacheLookup struct {
	gen      int64
	hit      bool
	fillable bool
}

func (s *Server) cacheGet(ctx context.Context, kind, fp string, dst any) cacheLookup {
	if s.opts.Cache == nil {
		return cacheLookup{}
	}
	gen, ok, err := s.opts.Cache.Get(ctx, kind, fp, dst)
	l := cacheLookup{gen: gen, hit: ok && err == nil, fillable: err == nil}
	result := "miss"
	switch {
	case err != nil:
		result = "error"
		s.log.Warn("cache get failed", zap.String("kind", kind), zap.Error(err))
	case ok:
		result = "hit"
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.CacheLookups.WithLabelValues(kind, result).Inc()
	}
	return l
}

// cacheSet grava sob a geração vista no lookup; se houve escrita no meio,
// a entrada fica numa geração morta e nunca é lida
func (s *Server) cacheSet(ctx context.Context, l cacheLookup, kind, fp string, v any) {
	if s.opts.Cache == nil || !l.fillable {
		return
	}
	if err := s.opts.Cache.Set(ctx, l.gen, kind, fp, v); err != nil {
		s.log.Warn("cache set failed", zap.String("kind", kind), zap.Error(err))
	}
}

func toEventBet(b betstats.Bet) *events.Bet {
	return &events.Bet{
		ID:        b.ID,
		Amount:    b.Amount,
		Odds:      b.Odds,
		Outcome:   string(b.Outcome),
		Sport:     b.Sport,
		BetType:   b.BetType,
		BetSource: b.BetSource,
		Date:      b.Date,
	}
}

func betID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid bet id")
		return 0, false
	}
	return id, true
}

func badRequest(w http.ResponseWriter, err error) {
	if dto.IsValidation(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, "invalid request body")
}

// storeError separa NotFound de falhas de infraestrutura
func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Bet not found")
		return
	}
	s.internalError(w, op, err)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
