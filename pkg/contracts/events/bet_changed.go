package events

import "time"

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Bet é o estado da aposta após a escrita
type Bet struct {
	ID        int64     `json:"id"`
	Amount    float64   `json:"amount"`
	Odds      float64   `json:"odds"`
	Outcome   string    `json:"outcome"`
	Sport     string    `json:"sport"`
	BetType   string    `json:"betType"`
	BetSource string    `json:"betSource"`
	Date      time.Time `json:"date"`
}

// Evento publicado no tópico "bet_changes" após cada escrita bem-sucedida.
// Bet vai nil em deleted.
type BetChanged struct {
	EventID  string `json:"eventId"` // uuid, idempotência no consumer
	Action   Action `json:"action"`
	BetID    int64  `json:"betId"`
	Bet      *Bet   `json:"bet,omitempty"`
	TsUnixMs int64  `json:"tsUnixMs"`
}
