// Package overpass downloads route relations from an Overpass API endpoint
// and keeps the raw documents in Redis.
package overpass

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/paulmach/osm"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Source string

const (
	SourceCache    Source = "cache"
	SourceOverpass Source = "overpass"
)

// maxDocumentSize caps a single response body.
const maxDocumentSize = 256 << 20

type Client struct {
	baseURL string
	http    *http.Client
	retries uint64
	wait    time.Duration // first retry delay
	cache   *cache.Cache[string]
}

// NewClient returns a client for the interpreter at baseURL. A nil rdb
// disables caching.
func NewClient(baseURL string, timeout time.Duration, retries int, rdb *redis.Client, ttl time.Duration) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		retries: uint64(max(retries, 0)),
		wait:    time.Second,
	}
	if rdb != nil {
		redisStore := redisstore.NewRedis(rdb, store.WithExpiration(ttl))
		c.cache = cache.New[string](redisStore)
	}
	return c
}

// Query is the Overpass QL that returns the relation with its parent
// relations, then the relation again with all members recursively.
func Query(id osm.RelationID) string {
	r := strconv.FormatInt(int64(id), 10)
	return "[out:xml];(relation(" + r + ");rel(br););out;(relation(" + r + ");>;);out;"
}

func cacheKey(id osm.RelationID) string {
	return "overpass/relation/" + strconv.FormatInt(int64(id), 10)
}

// Fetch returns the OSM XML document for relation id. A cached copy is used
// unless refresh is set; when a refresh fails the cached copy is returned
// instead.
func (c *Client) Fetch(ctx context.Context, id osm.RelationID, refresh bool) ([]byte, Source, error) {
	if c.cache != nil && !refresh {
		if doc, ok := c.cached(ctx, id); ok {
			return doc, SourceCache, nil
		}
	}

	doc, err := c.download(ctx, id)
	if err != nil {
		if c.cache != nil && refresh {
			if stale, ok := c.cached(ctx, id); ok {
				log.Warn().Err(err).Int64("relation", int64(id)).Msg("refresh failed, using cached document")
				return stale, SourceCache, nil
			}
		}
		return nil, "", err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey(id), string(doc)); err != nil {
			log.Warn().Err(err).Int64("relation", int64(id)).Msg("cache store failed")
		}
	}
	return doc, SourceOverpass, nil
}

func (c *Client) cached(ctx context.Context, id osm.RelationID) ([]byte, bool) {
	doc, err := c.cache.Get(ctx, cacheKey(id))
	if err != nil || doc == "" {
		return nil, false
	}
	return []byte(doc), true
}

// Invalidate drops the cached document of relation id.
func (c *Client) Invalidate(ctx context.Context, id osm.RelationID) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Delete(ctx, cacheKey(id))
}

func (c *Client) download(ctx context.Context, id osm.RelationID) ([]byte, error) {
	u := c.baseURL + "?data=" + url.QueryEscape(Query(id))

	var doc []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("overpass: %s", resp.Status)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("overpass: %s", resp.Status))
		}

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
		if err != nil {
			return err
		}
		if len(b) == 0 {
			return errors.New("overpass: empty response")
		}
		doc = b
		return nil
	}

	retryBackoff := backoff.NewExponentialBackOff()
	retryBackoff.InitialInterval = c.wait
	notify := func(err error, d time.Duration) {
		log.Debug().Err(err).Int64("relation", int64(id)).Dur("wait", d).Msg("overpass retry")
	}
	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(retryBackoff, c.retries), ctx), notify)
	if err != nil {
		return nil, fmt.Errorf("fetch relation %d: %w", id, err)
	}
	return doc, nil
}
