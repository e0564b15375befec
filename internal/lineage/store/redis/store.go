// Package redis stores lineage overrides as one hash per strain plus a set
// of known strains.
package redis

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	catalog "labelforge/internal/catalog/models"
	"labelforge/internal/lineage/models"
	"labelforge/pkg/platform/sentinel"
)

const defaultPrefix = "labelforge:lineage:"

// upsertScript writes the hash unless it holds a sovereign entry and the new
// one is learned. Returns 1 when written.
var upsertScript = redis.NewScript(`
if ARGV[4] ~= '1' and redis.call('HGET', KEYS[1], 'sovereign') == '1' then
	return 0
end
redis.call('HSET', KEYS[1], 'lineage', ARGV[1], 'confidence', ARGV[2], 'updated_at', ARGV[3], 'sovereign', ARGV[4])
redis.call('SADD', KEYS[2], ARGV[5])
return 1
`)

// Store keeps overrides in Redis.
type Store struct {
	client redis.UniversalClient
	prefix string
}

type Option func(*Store)

// WithPrefix namespaces keys, for sharing one Redis between environments.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(strain string) string { return s.prefix + "strain:" + strain }
func (s *Store) setKey() string           { return s.prefix + "strains" }

func (s *Store) Get(ctx context.Context, strain string) (models.Override, error) {
	fields, err := s.client.HGetAll(ctx, s.key(strain)).Result()
	if err != nil {
		return models.Override{}, fmt.Errorf("get lineage override: %w", err)
	}
	if len(fields) == 0 {
		return models.Override{}, sentinel.ErrNotFound
	}
	return decode(strain, fields)
}

func (s *Store) GetMany(ctx context.Context, strains []string) (map[string]models.Override, error) {
	out := make(map[string]models.Override, len(strains))
	if len(strains) == 0 {
		return out, nil
	}
	if err := s.fetch(ctx, strains, func(o models.Override) { out[o.Strain] = o }); err != nil {
		return nil, fmt.Errorf("get lineage overrides: %w", err)
	}
	return out, nil
}

func (s *Store) fetch(ctx context.Context, strains []string, fn func(models.Override)) error {
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(strains))
	for i, strain := range strains {
		cmds[i] = pipe.HGetAll(ctx, s.key(strain))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			continue
		}
		o, err := decode(strains[i], fields)
		if err != nil {
			return err
		}
		fn(o)
	}
	return nil
}

func (s *Store) Put(ctx context.Context, o models.Override) error {
	written, err := upsertScript.Run(ctx, s.client, []string{s.key(o.Strain), s.setKey()}, encode(o)...).Int()
	if err != nil {
		return fmt.Errorf("put lineage override: %w", err)
	}
	if written == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

// BatchPut pipelines one conditional upsert per override.
func (s *Store) BatchPut(ctx context.Context, overrides []models.Override) (int, error) {
	overrides = models.Collapse(overrides)
	if len(overrides) == 0 {
		return 0, nil
	}
	if err := upsertScript.Load(ctx, s.client).Err(); err != nil {
		return 0, fmt.Errorf("load lineage upsert script: %w", err)
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.Cmd, len(overrides))
	for i, o := range overrides {
		cmds[i] = upsertScript.EvalSha(ctx, pipe, []string{s.key(o.Strain), s.setKey()}, encode(o)...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("batch put lineage overrides: %w", err)
	}
	written := 0
	for _, cmd := range cmds {
		n, err := cmd.Int()
		if err != nil {
			return written, fmt.Errorf("batch put lineage overrides: %w", err)
		}
		written += n
	}
	return written, nil
}

func (s *Store) List(ctx context.Context) ([]models.Override, error) {
	strains, err := s.client.SMembers(ctx, s.setKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list lineage overrides: %w", err)
	}
	out := make([]models.Override, 0, len(strains))
	if len(strains) > 0 {
		if err := s.fetch(ctx, strains, func(o models.Override) { out = append(out, o) }); err != nil {
			return nil, fmt.Errorf("list lineage overrides: %w", err)
		}
	}
	slices.SortFunc(out, func(a, b models.Override) int { return cmp.Compare(a.Strain, b.Strain) })
	return out, nil
}

func (s *Store) Delete(ctx context.Context, strain string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.key(strain))
		pipe.SRem(ctx, s.setKey(), strain)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete lineage override: %w", err)
	}
	if del.Val() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func encode(o models.Override) []any {
	sovereign := "0"
	if o.Sovereign {
		sovereign = "1"
	}
	return []any{
		string(o.Lineage),
		strconv.FormatFloat(o.Confidence, 'g', -1, 64),
		o.UpdatedAt.UTC().Format(time.RFC3339Nano),
		sovereign,
		o.Strain,
	}
}

func decode(strain string, fields map[string]string) (models.Override, error) {
	confidence, err := strconv.ParseFloat(fields["confidence"], 64)
	if err != nil {
		return models.Override{}, fmt.Errorf("decode confidence for %q: %w", strain, err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return models.Override{}, fmt.Errorf("decode updated_at for %q: %w", strain, err)
	}
	return models.Override{
		Strain:     strain,
		Lineage:    catalog.Lineage(fields["lineage"]),
		Confidence: confidence,
		Sovereign:  fields["sovereign"] == "1",
		UpdatedAt:  updatedAt,
	}, nil
}
