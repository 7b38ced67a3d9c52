package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// HistoryEntry é uma linha da trilha de auditoria gravada pelo bet-history-worker
type HistoryEntry struct {
	EventID    string          `json:"eventId"`
	Action     string          `json:"action"`
	Bet        json.RawMessage `json:"bet,omitempty"` // estado após a escrita; vazio em deleted
	OccurredAt time.Time       `json:"occurredAt"`
}

// History retorna a trilha de uma aposta em ordem cronológica. Apostas já
// removidas continuam com histórico; ErrNotFound só quando não há nenhum evento.
func (p *Postgres) History(ctx context.Context, betID int64) ([]HistoryEntry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT event_id, action, payload, occurred_at
		  FROM bet_history
		 WHERE bet_id = $1
		 ORDER BY occurred_at, recorded_at`, betID)
	if err != nil {
		return nil, fmt.Errorf("bet %d history: %w", betID, err)
	}
	defer rows.Close()

	out := make([]HistoryEntry, 0)
	for rows.Next() {
		var (
			e       HistoryEntry
			payload []byte
		)
		if err := rows.Scan(&e.EventID, &e.Action, &payload, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if len(payload) > 0 {
			e.Bet = json.RawMessage(payload)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
