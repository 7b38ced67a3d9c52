package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/radieske/bet-tracker/pkg/contracts/events"
)

// PostgresRepo grava a trilha de auditoria das apostas (bet_history)
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// InsertHistory registra o evento uma única vez por event_id. Retorna false
// quando o evento já tinha sido gravado (reentrega do Kafka).
func (r *PostgresRepo) InsertHistory(ctx context.Context, e events.BetChanged) (bool, error) {
	const q = `
		INSERT INTO bet_history
		  (event_id, bet_id, action, payload, occurred_at)
		VALUES
		  ($1,$2,$3,$4,$5)
		ON CONFLICT (event_id) DO NOTHING
	`
	var payload []byte
	if e.Bet != nil {
		b, err := json.Marshal(e.Bet)
		if err != nil {
			return false, fmt.Errorf("marshal bet payload: %w", err)
		}
		payload = b
	}

	res, err := r.DB.ExecContext(ctx, q,
		e.EventID, e.BetID, string(e.Action), nullJSON(payload), time.UnixMilli(e.TsUnixMs).UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// nullJSON evita gravar um JSONB vazio (inválido) quando não há payload
func nullJSON(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
