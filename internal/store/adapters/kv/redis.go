package kv

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldValue = "value"
	fieldMeta  = "meta"
)

// redisNamespace implementa Namespace con un hash por key (campos value y meta).
// El cursor es el de SCAN, opcionalmente con un offset dentro del lote.
type redisNamespace struct {
	client *redis.Client
	prefix string
}

// NewRedisNamespace envuelve un cliente Redis. prefix aísla el namespace
// dentro de la DB ("" = sin prefijo).
func NewRedisNamespace(client *redis.Client, prefix string) Namespace {
	return &redisNamespace{client: client, prefix: prefix}
}

func (r *redisNamespace) key(k string) string { return r.prefix + k }

func (r *redisNamespace) Get(ctx context.Context, key string) (Entry, error) {
	vals, err := r.client.HMGet(ctx, r.key(key), fieldValue, fieldMeta).Result()
	if err != nil {
		return Entry{}, err
	}
	if len(vals) != 2 || vals[0] == nil {
		return Entry{}, ErrKeyNotFound
	}
	e := Entry{Value: toBytes(vals[0])}
	if vals[1] != nil {
		e.Metadata = toBytes(vals[1])
	}
	return e, nil
}

func (r *redisNamespace) Put(ctx context.Context, key string, e Entry, ttl time.Duration) error {
	k := r.key(key)
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		p.HSet(ctx, k, fieldValue, e.Value, fieldMeta, e.Metadata)
		if ttl > 0 {
			p.Expire(ctx, k, ttl)
		}
		return nil
	})
	return err
}

func (r *redisNamespace) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

// List pagina con SCAN. COUNT es solo una sugerencia para el servidor, así que
// un lote puede traer más de limit keys: el excedente se retoma con un cursor
// "{scan}.{offset}" que vuelve a pedir el mismo lote y saltea lo ya devuelto.
func (r *redisNamespace) List(ctx context.Context, prefix, cursor string, limit int) ([]KeyInfo, string, error) {
	pos, skip, err := parseScanCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	batch, next, err := r.client.Scan(ctx, pos, escapeGlob(r.key(prefix))+"*", int64(limit)).Result()
	if err != nil {
		return nil, "", err
	}

	keys := make([]string, 0, len(batch))
	seen := make(map[string]bool, len(batch))
	for _, k := range batch {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	if skip > len(keys) {
		skip = len(keys)
	}
	keys = keys[skip:]

	nextCursor := ""
	switch {
	case limit > 0 && len(keys) > limit:
		keys = keys[:limit]
		nextCursor = strconv.FormatUint(pos, 10) + "." + strconv.Itoa(skip+limit)
	case next != 0:
		nextCursor = strconv.FormatUint(next, 10)
	}

	out := make([]KeyInfo, 0, len(keys))
	if len(keys) > 0 {
		cmds := make([]*redis.StringCmd, len(keys))
		_, err := r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
			for i, k := range keys {
				cmds[i] = p.HGet(ctx, k, fieldMeta)
			}
			return nil
		})
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, "", err
		}
		for i, k := range keys {
			meta, err := cmds[i].Bytes()
			if errors.Is(err, redis.Nil) {
				// expiró entre SCAN y HGET
				continue
			}
			if err != nil {
				return nil, "", err
			}
			out = append(out, KeyInfo{Name: strings.TrimPrefix(k, r.prefix), Metadata: meta})
		}
	}
	return out, nextCursor, nil
}

func parseScanCursor(cursor string) (pos uint64, skip int, err error) {
	if cursor == "" {
		return 0, 0, nil
	}
	scan, off, hasOff := strings.Cut(cursor, ".")
	if pos, err = strconv.ParseUint(scan, 10, 64); err != nil {
		return 0, 0, ErrInvalidCursor
	}
	if hasOff {
		if skip, err = strconv.Atoi(off); err != nil || skip < 0 {
			return 0, 0, ErrInvalidCursor
		}
	}
	return pos, skip, nil
}

func (r *redisNamespace) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *redisNamespace) Close() error { return r.client.Close() }

func toBytes(v any) []byte {
	switch t := v.(type) {
	case string:
		return []byte(t)
	case []byte:
		return t
	}
	return nil
}

// escapeGlob escapa los metacaracteres del patrón MATCH de SCAN.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
