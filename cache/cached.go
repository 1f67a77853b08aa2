package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kbukum/runkit/logger"
	"github.com/kbukum/runkit/runnable"
)

// Options configures WithCache.
type Options[I any] struct {
	// TTL is the entry lifetime. 0 means no expiry.
	TTL time.Duration
	// Key derives the cache key from the input. The default hashes the
	// runnable name and the JSON encoding of the input.
	Key func(name string, input I) (string, error)
	// Logger receives store failures, which never fail the invocation.
	Logger *logger.Logger
}

// WithCache serves repeated inputs from store. Errors are never cached. An
// entry that no longer decodes into O is treated as a miss. Outputs go
// through JSON, so a hit carries integral numbers as int64.
func WithCache[I, O any](store Store, opts Options[I]) runnable.Middleware[I, O] {
	keyFn := opts.Key
	if keyFn == nil {
		keyFn = DefaultKey[I]
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	return func(inner runnable.Runnable[I, O]) runnable.Runnable[I, O] {
		return runnable.Func(inner.Name(), func(ctx context.Context, input I) (O, error) {
			key, err := keyFn(inner.Name(), input)
			if err != nil {
				log.WithContext(ctx).Debug("cache key unavailable, bypassing", map[string]interface{}{
					logger.FieldRunnable: inner.Name(),
					logger.FieldError:    err.Error(),
				})
				return inner.Invoke(ctx, input)
			}

			if raw, found, err := store.Get(ctx, key); err != nil {
				log.WithContext(ctx).Warn("cache get failed", map[string]interface{}{
					logger.FieldRunnable: inner.Name(),
					logger.FieldError:    err.Error(),
				})
			} else if found {
				if out, err := decode[O](raw); err == nil {
					return out, nil
				}
			}

			out, err := inner.Invoke(ctx, input)
			if err != nil {
				return out, err
			}
			if raw, err := json.Marshal(out); err == nil {
				if err := store.Set(ctx, key, raw, opts.TTL); err != nil {
					log.WithContext(ctx).Warn("cache set failed", map[string]interface{}{
						logger.FieldRunnable: inner.Name(),
						logger.FieldError:    err.Error(),
					})
				}
			}
			return out, nil
		})
	}
}

// decode reads a cached entry back into O. When O is an interface the
// entry is decoded with runnable.DecodeJSON, so a record served from the
// cache keeps its key order like the one that was stored.
func decode[O any](raw []byte) (O, error) {
	var out O
	if dst, ok := any(&out).(*any); ok {
		v, err := runnable.DecodeJSON(raw)
		if err != nil {
			return out, err
		}
		*dst = v
		return out, nil
	}
	err := json.Unmarshal(raw, &out)
	return out, err
}

// DefaultKey returns "{name}:{sha256 of the JSON input}".
func DefaultKey[I any](name string, input I) (string, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("encoding cache key: %w", err)
	}
	sum := sha256.Sum256(raw)
	return name + ":" + hex.EncodeToString(sum[:]), nil
}
