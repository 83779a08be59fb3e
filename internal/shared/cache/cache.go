package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/foundersnet-market-poc/pkg/contracts/market"
)

func ConnectRedis(addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

// EventCache guarda o snapshot JSON de cada evento.
// O market-service lê (read-through) e invalida; o projector grava o snapshot novo.
type EventCache struct {
	R   *redis.Client
	TTL time.Duration
}

func NewEventCache(r *redis.Client, ttl time.Duration) *EventCache {
	return &EventCache{R: r, TTL: ttl}
}

func keyEvent(eventID int64) string { return "market:event:" + strconv.FormatInt(eventID, 10) }

// Get devolve (evento, true) em caso de hit; redis.Nil vira miss sem erro
func (c *EventCache) Get(ctx context.Context, eventID int64) (market.Event, bool, error) {
	var ev market.Event
	b, err := c.R.Get(ctx, keyEvent(eventID)).Bytes()
	if err == redis.Nil {
		return ev, false, nil
	}
	if err != nil {
		return ev, false, err
	}
	return ev, true, json.Unmarshal(b, &ev)
}

func (c *EventCache) Set(ctx context.Context, ev market.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyEvent(ev.ID), b, c.TTL).Err()
}

func (c *EventCache) Invalidate(ctx context.Context, eventID int64) error {
	return c.R.Del(ctx, keyEvent(eventID)).Err()
}
