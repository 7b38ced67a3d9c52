package dto

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/radieske/bet-tracker/internal/betstats"
)

// ErrMissingFields é devolvido quando algum campo obrigatório não veio no payload
var ErrMissingFields = &ValidationError{Msg: "Missing required fields"}

// ValidationError representa entrada inválida (HTTP 400)
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// IsValidation indica se err é (ou embrulha) um ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Number aceita número JSON ou string numérica ("12.5").
// O form de edição da UI envia strings.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if uq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(uq)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Msg: fmt.Sprintf("invalid number %s", string(b))}
	}
	*n = Number(v)
	return nil
}

// CreateBetRequest é o payload de POST /bets. Ponteiros nil = campo ausente.
type CreateBetRequest struct {
	Amount    *Number `json:"amount"`
	Odds      *Number `json:"odds"`
	Outcome   *string `json:"outcome"`
	Sport     *string `json:"sport"`
	BetType   *string `json:"betType"`
	BetSource *string `json:"betSource"`
}

// ToBet valida o payload e monta a aposta (sem ID e data, definidos pelo store)
func (r CreateBetRequest) ToBet() (betstats.Bet, error) {
	if r.Sport == nil {
		return betstats.Bet{}, ErrMissingFields
	}
	upd := UpdateBetRequest{Amount: r.Amount, Odds: r.Odds, Outcome: r.Outcome, BetType: r.BetType, BetSource: r.BetSource}
	b, err := upd.ToBet()
	if err != nil {
		return betstats.Bet{}, err
	}
	b.Sport = *r.Sport
	return b, nil
}

// UpdateBetRequest é o payload de PUT /bets/{id}; sport não é editável
type UpdateBetRequest struct {
	Amount    *Number `json:"amount"`
	Odds      *Number `json:"odds"`
	Outcome   *string `json:"outcome"`
	BetType   *string `json:"betType"`
	BetSource *string `json:"betSource"`
}

func (r UpdateBetRequest) ToBet() (betstats.Bet, error) {
	if r.Amount == nil || r.Odds == nil || r.Outcome == nil || r.BetType == nil || r.BetSource == nil {
		return betstats.Bet{}, ErrMissingFields
	}
	if *r.Amount <= 0 {
		return betstats.Bet{}, &ValidationError{Msg: "amount must be positive"}
	}
	if *r.Odds <= 0 {
		return betstats.Bet{}, &ValidationError{Msg: "odds must be positive"}
	}
	outcome := betstats.Outcome(*r.Outcome)
	if !outcome.Valid() {
		return betstats.Bet{}, &ValidationError{Msg: "outcome must be one of win, loss, push"}
	}
	return betstats.Bet{
		Amount:    float64(*r.Amount),
		Odds:      float64(*r.Odds),
		Outcome:   outcome,
		BetType:   *r.BetType,
		BetSource: *r.BetSource,
	}, nil
}

// StatsQuery são os parâmetros de GET /stats
type StatsQuery struct {
	Range     string
	Sport     string
	BetType   string
	BetSource string
}

func ParseStatsQuery(v url.Values) StatsQuery {
	return StatsQuery{
		Range:     v.Get("range"),
		Sport:     v.Get("sport"),
		BetType:   v.Get("betType"),
		BetSource: v.Get("betSource"),
	}
}

// Criteria converte a query em predicados tipados, resolvendo o range em now
func (q StatsQuery) Criteria(now time.Time) betstats.Criteria {
	c := betstats.Criteria{
		Sport:     CategoryParam(q.Sport),
		BetType:   CategoryParam(q.BetType),
		BetSource: CategoryParam(q.BetSource),
	}
	if iv, ok := betstats.Resolve(betstats.ParseRange(q.Range), now); ok {
		c.Interval = &iv
	}
	return c
}

// CategoryParam traduz o sentinela da UI: vazio ou "all" = sem restrição
func CategoryParam(s string) *string {
	if s == "" || s == "all" {
		return nil
	}
	return &s
}

// CacheKey gera uma impressão estável dos predicados já resolvidos
func CacheKey(c betstats.Criteria) string {
	iv := "*"
	if c.Interval != nil {
		iv = fmt.Sprintf("%d-%d", c.Interval.Start.Unix(), c.Interval.End.Unix())
	}
	return strings.Join([]string{iv, quoteOpt(c.Sport), quoteOpt(c.BetType), quoteOpt(c.BetSource)}, "|")
}

func quoteOpt(s *string) string {
	if s == nil {
		return "*"
	}
	return strconv.Quote(*s)
}
