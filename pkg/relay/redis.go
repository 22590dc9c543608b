package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

// DefaultStream is the Redis stream issuances are appended to.
const DefaultStream = "ecoledger:issuances"

// RedisRelay appends issuances to a Redis stream for downstream ledger writers.
type RedisRelay struct {
	client *redis.Client
	stream string
}

func NewRedisRelay(addr, password string, db int, stream string) *RedisRelay {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisRelayWithClient(rdb, stream)
}

func NewRedisRelayWithClient(client *redis.Client, stream string) *RedisRelay {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisRelay{client: client, stream: stream}
}

func (r *RedisRelay) Name() string { return "redis" }

// Submit XADDs the issuance; the stream entry id is the reference.
func (r *RedisRelay) Submit(ctx context.Context, rec contracts.CreditRecord) (string, error) {
	body, err := json.Marshal(NewIssuancePayload(rec))
	if err != nil {
		return "", &contracts.RelayError{Relay: r.Name(), Err: fmt.Errorf("encode payload: %w", err)}
	}
	id, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]any{
			"credit_id": rec.CreditID,
			"payload":   string(body),
		},
	}).Result()
	if err != nil {
		return "", &contracts.RelayError{Relay: r.Name(), Err: err}
	}
	return id, nil
}

// Ping checks connectivity.
func (r *RedisRelay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRelay) Close() error { return r.client.Close() }
