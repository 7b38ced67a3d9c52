package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bet-tracker/internal/shared/kafka"
	"github.com/radieske/bet-tracker/pkg/contracts/events"
)

const (
	broadcastTimeout = 500 * time.Millisecond
	maxRetryBackoff  = 5 * time.Second
)

// Reader é o consumer group: o offset só é confirmado via CommitMessages
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type HistoryStore interface {
	InsertHistory(ctx context.Context, e events.BetChanged) (bool, error)
}

type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// StageError identifica em qual etapa o processamento de uma mensagem falhou
type StageError struct {
	Stage string // "decode" | "db_history" | "broadcast"
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Processor consome "bet_changes", grava o histórico e avisa o feed WebSocket
// via Redis Pub/Sub. Callbacks de métricas são opcionais.
type Processor struct {
	Log         *zap.Logger
	Reader      Reader
	Repo        HistoryStore
	Broadcaster Broadcaster
	Channel     string

	// RetryBackoff é a espera inicial entre tentativas de gravar o histórico
	// (dobra até maxRetryBackoff). Zero = 500ms.
	RetryBackoff time.Duration

	OnConsumed  func()
	OnPersist   func()
	OnDuplicate func()
	OnError     func(string) // métricas por fase
}

// Run inicia o loop principal; retorna quando o ctx é cancelado. O offset de
// uma mensagem só é confirmado depois que o histórico foi gravado (ou a
// mensagem foi descartada como inválida), então a trilha é at-least-once.
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka fetch failed", zap.Error(err))
			p.onError("read")
			if err := sleep(ctx, 500*time.Millisecond); err != nil {
				return err
			}
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		if err := p.process(ctx, m); err != nil {
			return err
		}

		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
			p.onError("commit")
		}
	}
}

// process repete Handle enquanto a falha for de gravação no banco. Mensagens
// inválidas e falhas de broadcast não são repetidas: o offset segue adiante.
func (p *Processor) process(ctx context.Context, m kafka.Message) error {
	backoff := p.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	for {
		err := p.Handle(ctx, m)
		if err == nil {
			return nil
		}

		stage := "unknown"
		var se *StageError
		if errors.As(err, &se) {
			stage = se.Stage
		}
		p.onError(stage)
		p.Log.Warn("bet change not processed",
			zap.String("stage", stage),
			zap.Int64("offset", m.Offset),
			zap.ByteString("key", m.Key),
			zap.Error(err),
		)
		if stage != "db_history" {
			return nil
		}

		if err := sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = min(backoff*2, maxRetryBackoff)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Handle processa uma mensagem. Eventos repetidos (mesmo eventId) não são
// gravados nem retransmitidos.
func (p *Processor) Handle(ctx context.Context, m kafka.Message) error {
	var ev events.BetChanged
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		return &StageError{Stage: "decode", Err: err}
	}
	if ev.EventID == "" || ev.BetID <= 0 {
		return &StageError{Stage: "decode", Err: errors.New("missing eventId or betId")}
	}

	inserted, err := p.Repo.InsertHistory(ctx, ev)
	if err != nil {
		return &StageError{Stage: "db_history", Err: err}
	}
	if !inserted {
		p.Log.Debug("duplicate bet change", zap.String("eventId", ev.EventID))
		if p.OnDuplicate != nil {
			p.OnDuplicate()
		}
		return nil
	}
	if p.OnPersist != nil {
		p.OnPersist()
	}

	if p.Broadcaster == nil {
		return nil
	}
	b, _ := json.Marshal(events.NotificationFor(ev))
	bctx, cancel := context.WithTimeout(ctx, broadcastTimeout)
	defer cancel()
	if err := p.Broadcaster.Publish(bctx, p.Channel, b); err != nil {
		return &StageError{Stage: "broadcast", Err: err}
	}
	return nil
}

func (p *Processor) onError(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
