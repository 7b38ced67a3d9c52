package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	KindStats   = "stats"
	KindFilters = "filters"

	generationKey = "bettracker:generation"
)

// ResponseCache guarda respostas de /stats e /filters no Redis.
// As chaves carregam a geração atual; cada escrita em apostas incrementa a
// geração e as entradas antigas simplesmente expiram pelo TTL.
type ResponseCache struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *ResponseCache {
	return &ResponseCache{R: r, TTL: ttl}
}

func key(gen int64, kind, fingerprint string) string {
	return fmt.Sprintf("bettracker:%s:%d:%s", kind, gen, fingerprint)
}

func (c *ResponseCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.R.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Get devolve false quando não há entrada para a geração atual. A geração
// lida é sempre retornada: quem for preencher o cache depois de um miss deve
// passá-la ao Set, para que uma resposta calculada antes de uma escrita caia
// numa chave já descartada.
func (c *ResponseCache) Get(ctx context.Context, kind, fingerprint string, dst any) (int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return 0, false, err
	}
	b, err := c.R.Get(ctx, key(gen, kind, fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return gen, false, nil
	}
	if err != nil {
		return gen, false, err
	}
	return gen, true, json.Unmarshal(b, dst)
}

// Set grava v sob a geração informada (a retornada pelo Get que deu miss)
func (c *ResponseCache) Set(ctx context.Context, gen int64, kind, fingerprint string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, key(gen, kind, fingerprint), b, c.TTL).Err()
}

// Invalidate descarta logicamente todas as entradas
func (c *ResponseCache) Invalidate(ctx context.Context) error {
	return c.R.Incr(ctx, generationKey).Err()
}
