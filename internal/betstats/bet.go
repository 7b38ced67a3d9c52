package betstats

import "time"

// Outcome é o resultado liquidado de uma aposta
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomePush Outcome = "push"
)

// Valid indica se o outcome pertence ao conjunto aceito na criação/edição
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeWin, OutcomeLoss, OutcomePush:
		return true
	}
	return false
}

// Bet é um snapshot imutável de uma aposta lida do store.
// Date é carimbada na inserção e nunca muda.
type Bet struct {
	ID        int64     `json:"id"`
	Amount    float64   `json:"amount"`
	Odds      float64   `json:"odds"` // decimal: payout = amount * odds
	Outcome   Outcome   `json:"outcome"`
	Sport     string    `json:"sport"`
	BetType   string    `json:"betType"`
	BetSource string    `json:"betSource"`
	Date      time.Time `json:"date"`
}

// Profit retorna o lucro/prejuízo líquido da aposta.
// Outcomes fora de win/loss não movem o P/L.
func (b Bet) Profit() float64 {
	switch b.Outcome {
	case OutcomeWin:
		return b.Amount*b.Odds - b.Amount
	case OutcomeLoss:
		return -b.Amount
	default:
		return 0
	}
}
