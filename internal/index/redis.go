// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/pdiddy/whats-next/pkg/types"
)

const (
	redisFieldVector = "vector"
	redisFieldDoc    = "doc"
	redisFieldSeq    = "seq"
	redisScoreAlias  = "dist"
)

// RedisStore keeps each index as HASH keys under one prefix with a
// RediSearch FLAT index using the COSINE metric.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore connects to addr. RESP2 is forced so FT.SEARCH replies
// keep their flat array layout.
func NewRedisStore(ctx context.Context, cfg types.IndexConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: redis address not set", ErrConfiguration)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		Protocol: 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisStore{client: client, prefix: orPrefix(cfg.Prefix)}, nil
}

func orPrefix(p string) string {
	if p == "" {
		return "whatsnext"
	}
	return p
}

// keyNameEscaper keeps ":" out of the name segment of a key, so one
// index's key prefix can never match the keys of another.
var keyNameEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// globEscaper quotes the characters SCAN MATCH treats as wildcards.
var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

func (s *RedisStore) base(name string) string {
	return s.prefix + ":" + keyNameEscaper.Replace(name) + ":"
}

func (s *RedisStore) indexKey(name string) string  { return s.base(name) + "idx" }
func (s *RedisStore) metaKey(name string) string   { return s.base(name) + "meta" }
func (s *RedisStore) docPrefix(name string) string { return s.base(name) + "doc:" }

// docPattern matches exactly the document keys of name.
func (s *RedisStore) docPattern(name string) string {
	return globEscaper.Replace(s.docPrefix(name)) + "*"
}

func (s *RedisStore) Create(ctx context.Context, name string, dim int) error {
	if err := s.client.HSet(ctx, s.metaKey(name), "dim", dim, "count", 0).Err(); err != nil {
		return fmt.Errorf("writing index metadata: %w", err)
	}
	if dim == 0 {
		return nil
	}
	err := s.client.Do(ctx, "FT.CREATE", s.indexKey(name),
		"ON", "HASH",
		"PREFIX", "1", s.docPrefix(name),
		"SCHEMA",
		redisFieldVector, "VECTOR", "FLAT", "6",
		"TYPE", "FLOAT32", "DIM", strconv.Itoa(dim), "DISTANCE_METRIC", "COSINE",
		redisFieldSeq, "NUMERIC", "SORTABLE",
	).Err()
	if err != nil {
		return fmt.Errorf("FT.CREATE %s: %w", s.indexKey(name), err)
	}
	return nil
}

func (s *RedisStore) Destroy(ctx context.Context, name string) error {
	err := s.client.Do(ctx, "FT.DROPINDEX", s.indexKey(name), "DD").Err()
	if err != nil && !isUnknownIndex(err) {
		return fmt.Errorf("FT.DROPINDEX %s: %w", s.indexKey(name), err)
	}

	// Dimensionless indexes have no search index; sweep their keys directly.
	iter := s.client.Scan(ctx, 0, s.docPattern(name), 500).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning %s: %w", name, err)
	}
	keys = append(keys, s.metaKey(name))
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting %s keys: %w", name, err)
	}
	return nil
}

func isUnknownIndex(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unknown index") || strings.Contains(msg, "no such index")
}

// Insert writes every entry in one MULTI/EXEC transaction.
func (s *RedisStore) Insert(ctx context.Context, name string, entries []Entry) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range entries {
			doc, err := json.Marshal(e.Document)
			if err != nil {
				return fmt.Errorf("encoding entry %s: %w", e.ID, err)
			}
			pipe.HSet(ctx, s.docPrefix(name)+e.ID,
				redisFieldVector, encodeVector(e.Vector),
				redisFieldDoc, doc,
				redisFieldSeq, e.Seq,
			)
		}
		pipe.HIncrBy(ctx, s.metaKey(name), "count", int64(len(entries)))
		return nil
	})
	if err != nil {
		return fmt.Errorf("inserting into %s: %w", name, err)
	}
	return nil
}

func (s *RedisStore) Search(ctx context.Context, name string, vector []float32, k int) ([]Hit, error) {
	query := fmt.Sprintf("*=>[KNN %d @%s $vec AS %s]", k, redisFieldVector, redisScoreAlias)
	reply, err := s.client.Do(ctx, "FT.SEARCH", s.indexKey(name), query,
		"PARAMS", "2", "vec", encodeVector(vector),
		"SORTBY", redisScoreAlias, "ASC",
		"RETURN", "3", redisFieldDoc, redisScoreAlias, redisFieldSeq,
		"LIMIT", "0", strconv.Itoa(k),
		"DIALECT", "2",
	).Result()
	if err != nil {
		if isUnknownIndex(err) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
		}
		return nil, fmt.Errorf("FT.SEARCH %s: %w", s.indexKey(name), err)
	}
	return parseSearchReply(reply, k)
}

// parseSearchReply reads the RESP2 FT.SEARCH layout:
// [total, key1, [field, value, ...], key2, [...], ...].
// RediSearch reports cosine distance; it is converted to similarity.
func parseSearchReply(reply any, k int) ([]Hit, error) {
	values, ok := reply.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected FT.SEARCH reply %T", reply)
	}
	var scored []scoredSeq
	for i := 1; i+1 < len(values); i += 2 {
		fields, ok := values[i+1].([]any)
		if !ok {
			continue
		}
		var (
			doc  types.SourceDocument
			dist float64
			seq  int
			err  error
		)
		for j := 0; j+1 < len(fields); j += 2 {
			key, _ := fields[j].(string)
			val := fmt.Sprint(fields[j+1])
			switch key {
			case redisFieldDoc:
				err = json.Unmarshal([]byte(val), &doc)
			case redisScoreAlias:
				dist, err = strconv.ParseFloat(val, 64)
			case redisFieldSeq:
				seq, err = strconv.Atoi(val)
			}
			if err != nil {
				return nil, fmt.Errorf("decoding %s of %v: %w", key, values[i], err)
			}
		}
		scored = append(scored, scoredSeq{hit: Hit{Document: doc, Score: 1 - dist}, seq: seq})
	}
	return orderHits(scored, k), nil
}

func (s *RedisStore) Count(ctx context.Context, name string) (int, error) {
	n, err := s.client.HGet(ctx, s.metaKey(name), "count").Int()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("reading %s count: %w", name, err)
	}
	return n, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
