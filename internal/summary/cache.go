package summary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/readee-ai/docproc/internal/model"
)

// Triple is the summarization contract the pipeline consumes.
type Triple interface {
	SummarizeTriple(ctx context.Context, text string, speed bool) (*model.SummaryResult, error)
}

// WrapLRUCache memoizes triple results keyed by the cleaned text and the
// speed flag. Identical re-uploads skip generation entirely within the TTL.
func WrapLRUCache(next Triple, size int, ttl time.Duration) Triple {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &cachedTriple{
		next:  next,
		cache: expirable.NewLRU[string, *model.SummaryResult](size, nil, ttl),
	}
}

type cachedTriple struct {
	next  Triple
	cache *expirable.LRU[string, *model.SummaryResult]
}

func (c *cachedTriple) SummarizeTriple(ctx context.Context, text string, speed bool) (*model.SummaryResult, error) {
	key := tripleCacheKey(text, speed)
	if cached, ok := c.cache.Get(key); ok {
		logutil.GetLogger(ctx).Debug("summary cache hit", zap.String("key", key[:12]))
		return cached, nil
	}
	res, err := c.next.SummarizeTriple(ctx, text, speed)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, res)
	return res, nil
}

func tripleCacheKey(text string, speed bool) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("triple|%t|%s", speed, Preclean(text))))
	return hex.EncodeToString(h[:])
}
