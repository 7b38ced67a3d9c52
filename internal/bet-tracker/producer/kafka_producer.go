package producer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/bet-tracker/internal/shared/kafka"
	"github.com/radieske/bet-tracker/pkg/contracts/events"
)

type KafkaPublisher struct {
	Writer *kafka.Writer
}

func NewKafkaPublisher(w *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

// PublishBetChanged completa EventID/timestamp e publica com chave = betId,
// mantendo a ordem das alterações de uma mesma aposta
func (p *KafkaPublisher) PublishBetChanged(ctx context.Context, e events.BetChanged) error {
	Stamp(&e, time.Now())
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return kafka.WriteJSON(ctx, p.Writer, strconv.FormatInt(e.BetID, 10), b)
}

// Stamp preenche EventID e TsUnixMs quando vazios
func Stamp(e *events.BetChanged, now time.Time) {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.TsUnixMs == 0 {
		e.TsUnixMs = now.UnixMilli()
	}
}
