package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/danuprasetya/go-storefront/internal/redisx"
)

// RedisSessionCache keeps recently created gateway sessions keyed by owner and
// order, so a double-submitted checkout reuses the open session instead of
// opening a second one at the gateway.
type RedisSessionCache struct {
	RDB *redis.Client
}

func (c RedisSessionCache) Get(ctx context.Context, userID, orderID string) (InitiateResult, bool) {
	s, err := c.RDB.Get(ctx, fmt.Sprintf(redisx.KeyIdemCheckout, userID, orderID)).Result()
	if err != nil || s == "" {
		return InitiateResult{}, false
	}
	var res InitiateResult
	if json.Unmarshal([]byte(s), &res) != nil || res.SessionID == "" {
		return InitiateResult{}, false
	}
	return res, true
}

func (c RedisSessionCache) Put(ctx context.Context, userID, orderID string, res InitiateResult) {
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	_ = c.RDB.Set(ctx, fmt.Sprintf(redisx.KeyIdemCheckout, userID, orderID), b, redisx.TTLIdempotency).Err()
}
