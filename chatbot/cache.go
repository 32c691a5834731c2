package chatbot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	intentCacheTTL     = 10 * time.Minute
	intentCacheTimeout = 300 * time.Millisecond
)

// intentCache keeps recent classification results so repeated questions
// skip the upstream model call (and its pacing delay). Best effort: every
// operation degrades silently when Redis is unavailable.
type intentCache struct {
	client *redis.Client
}

func newIntentCache(client *redis.Client) *intentCache {
	if client == nil {
		return nil
	}
	return &intentCache{client: client}
}

func (ic *intentCache) cacheContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), intentCacheTimeout)
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= intentCacheTimeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, intentCacheTimeout)
}

func (ic *intentCache) key(question string) string {
	sum := sha256.Sum256([]byte(question))
	return "chatbot:intent:" + hex.EncodeToString(sum[:])
}

func (ic *intentCache) get(ctx context.Context, question string) (Intent, bool) {
	if ic == nil || ic.client == nil {
		return Intent{}, false
	}

	ctx, cancel := ic.cacheContext(ctx)
	defer cancel()

	data, err := ic.client.Get(ctx, ic.key(question)).Bytes()
	if err != nil {
		return Intent{}, false
	}

	var intent Intent
	if err := json.Unmarshal(data, &intent); err != nil {
		return Intent{}, false
	}
	return intent, true
}

func (ic *intentCache) store(ctx context.Context, question string, intent Intent) {
	if ic == nil || ic.client == nil {
		return
	}

	payload, err := json.Marshal(intent)
	if err != nil {
		log.Printf("chatbot: marshal intent cache payload failed: %v", err)
		return
	}

	ctx, cancel := ic.cacheContext(ctx)
	defer cancel()

	if err := ic.client.Set(ctx, ic.key(question), payload, intentCacheTTL).Err(); err != nil {
		log.Printf("chatbot: store intent cache failed: %v", err)
	}
}
