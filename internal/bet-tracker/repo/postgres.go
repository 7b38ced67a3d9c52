package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/radieske/bet-tracker/internal/betstats"
)

// ErrNotFound indica que não existe aposta com o id informado
var ErrNotFound = errors.New("bet not found")

const betColumns = `id, amount, odds, outcome, sport, bet_type, bet_source, date`

// Postgres implementa o store de apostas em banco Postgres
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de apostas
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

type scanner interface {
	Scan(dest ...any) error
}

func scanBet(s scanner) (betstats.Bet, error) {
	var b betstats.Bet
	var outcome string
	if err := s.Scan(&b.ID, &b.Amount, &b.Odds, &outcome, &b.Sport, &b.BetType, &b.BetSource, &b.Date); err != nil {
		return betstats.Bet{}, err
	}
	b.Outcome = betstats.Outcome(outcome)
	return b, nil
}

// List retorna o snapshot completo de apostas, ordenado por id
func (p *Postgres) List(ctx context.Context) ([]betstats.Bet, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+betColumns+` FROM bets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	defer rows.Close()

	out := make([]betstats.Bet, 0)
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Get busca uma aposta pelo id
func (p *Postgres) Get(ctx context.Context, id int64) (betstats.Bet, error) {
	b, err := scanBet(p.db.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return betstats.Bet{}, ErrNotFound
	}
	if err != nil {
		return betstats.Bet{}, fmt.Errorf("get bet %d: %w", id, err)
	}
	return b, nil
}

// Create insere a aposta; id e date são definidos pelo banco
func (p *Postgres) Create(ctx context.Context, b betstats.Bet) (betstats.Bet, error) {
	created, err := scanBet(p.db.QueryRowContext(ctx, `
		INSERT INTO bets (amount, odds, outcome, sport, bet_type, bet_source)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING `+betColumns,
		b.Amount, b.Odds, string(b.Outcome), b.Sport, b.BetType, b.BetSource,
	))
	if err != nil {
		return betstats.Bet{}, fmt.Errorf("insert bet: %w", err)
	}
	return created, nil
}

// Update altera os campos editáveis. sport e date nunca mudam.
func (p *Postgres) Update(ctx context.Context, id int64, b betstats.Bet) (betstats.Bet, error) {
	updated, err := scanBet(p.db.QueryRowContext(ctx, `
		UPDATE bets SET amount=$1, odds=$2, outcome=$3, bet_type=$4, bet_source=$5
		WHERE id=$6
		RETURNING `+betColumns,
		b.Amount, b.Odds, string(b.Outcome), b.BetType, b.BetSource, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return betstats.Bet{}, ErrNotFound
	}
	if err != nil {
		return betstats.Bet{}, fmt.Errorf("update bet %d: %w", id, err)
	}
	return updated, nil
}

// Delete remove a aposta
func (p *Postgres) Delete(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM bets WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete bet %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete bet %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
