package scriptstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/suyash-sneo/scriptstore/store"
)

// maxSlugCandidates bounds the -2, -3, ... suffixes tried before falling back
// to {slug}-{id}.
const maxSlugCandidates = 20

// Option configures a Repository.
type Option func(*Repository)

// WithIDGenerator overrides the default id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Repository) { r.ids = g }
}

// WithNow sets a custom clock (tests).
func WithNow(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithLogger attaches a logger.
func WithLogger(l Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// Repository keeps script records and their name index in a store.
//
// Writes follow a fixed order: the primary record is queued before the
// index entry and the scripts:all member. Create and Delete send their
// writes as one transaction; Update is a plain read-modify-write, so
// concurrent updates to one id can lose a write.
type Repository struct {
	store  store.Store
	ids    IDGenerator
	now    func() time.Time
	logger Logger
}

// NewRepository builds a repository over s.
func NewRepository(s store.Store, opts ...Option) *Repository {
	r := &Repository{
		store:  s,
		ids:    NewDefaultIDGenerator(),
		now:    time.Now,
		logger: NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List returns every stored script keyed by id. Missing or unreadable
// records are skipped.
func (r *Repository) List(ctx context.Context) (map[string]Script, error) {
	scripts, _, err := r.scan(ctx)
	return scripts, err
}

// scan reads every script:* record. Records that exist but cannot be read,
// whether undecodable or of the wrong Redis type, are logged and returned
// as unreadable ids instead of scripts.
func (r *Repository) scan(ctx context.Context) (map[string]Script, map[string]bool, error) {
	keys, err := r.store.Keys(ctx, ScriptKeyPrefix+"*")
	if err != nil {
		return nil, nil, fmt.Errorf("list script keys: %w", err)
	}
	scripts := make(map[string]Script, len(keys))
	unreadable := make(map[string]bool)
	if len(keys) == 0 {
		return scripts, unreadable, nil
	}

	ops := make([]store.Op, len(keys))
	for i, k := range keys {
		ops[i] = store.Get(k)
	}
	results, err := r.store.Pipeline(ctx, ops...)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch scripts: %w", err)
	}

	for i, res := range results {
		id := strings.TrimPrefix(keys[i], ScriptKeyPrefix)
		if res.Err != nil {
			r.logger.Warn("skipping unreadable script", F("id", id), F("err", res.Err))
			unreadable[id] = true
			continue
		}
		if !res.Found {
			continue
		}
		s, err := decodeScript(res.Value)
		if err != nil {
			r.logger.Warn("skipping unreadable script", F("id", id), F("err", err))
			unreadable[id] = true
			continue
		}
		if s.ID == "" {
			s.ID = id
		}
		scripts[id] = s
	}
	return scripts, unreadable, nil
}

// Get returns the script stored under id.
func (r *Repository) Get(ctx context.Context, id string) (Script, error) {
	if id == "" {
		return Script{}, invalid(msgIDRequired)
	}
	data, ok, err := r.store.Get(ctx, scriptKey(id))
	if err != nil {
		return Script{}, fmt.Errorf("get script %s: %w", id, err)
	}
	if !ok {
		return Script{}, ErrNotFound
	}
	s, err := decodeScript(data)
	if err != nil {
		return Script{}, fmt.Errorf("script %s: %w", id, err)
	}
	if s.ID == "" {
		s.ID = id
	}
	return s, nil
}

// Lookup resolves a slug through the name index.
func (r *Repository) Lookup(ctx context.Context, slug string) (Script, error) {
	if slug == "" {
		return Script{}, ErrNotFound
	}
	id, ok, err := r.store.Get(ctx, nameKey(slug))
	if err != nil {
		return Script{}, fmt.Errorf("lookup name %s: %w", slug, err)
	}
	if !ok {
		return Script{}, ErrNotFound
	}
	return r.Get(ctx, string(id))
}

// Create stores a new script and its index entry.
func (r *Repository) Create(ctx context.Context, in CreateInput) (Script, error) {
	if in.Name == "" || in.Content == "" {
		return Script{}, invalid(msgCreateRequired)
	}

	now := r.timestamp()
	id, err := r.ids.NewID(now)
	if err != nil {
		return Script{}, fmt.Errorf("generate id: %w", err)
	}
	slug, err := r.freeSlug(ctx, Slugify(in.Name), id)
	if err != nil {
		return Script{}, err
	}

	s := Script{
		ID:           id,
		Name:         slug,
		OriginalName: in.Name,
		Content:      in.Content,
		Created:      now,
		Updated:      now,
	}
	data, err := encodeScript(s)
	if err != nil {
		return Script{}, err
	}
	_, err = r.store.Tx(ctx,
		store.Set(scriptKey(id), data),
		store.Set(nameKey(slug), []byte(id)),
		store.SAdd(AllScriptsKey, id),
	)
	if err != nil {
		return Script{}, fmt.Errorf("create script %s: %w", id, err)
	}
	r.logger.Info("script created", F("id", id), F("name", slug))
	return s, nil
}

// Update replaces the content of an existing script. Name and index are left alone.
func (r *Repository) Update(ctx context.Context, in UpdateInput) (Script, error) {
	if in.ID == "" || in.Content == "" {
		return Script{}, invalid(msgUpdateRequired)
	}
	s, err := r.Get(ctx, in.ID)
	if err != nil {
		return Script{}, err
	}

	now := r.timestamp()
	if now.Before(s.Updated) {
		now = s.Updated
	}
	if now.Before(s.Created) {
		now = s.Created
	}
	s.Content = in.Content
	s.Updated = now

	data, err := encodeScript(s)
	if err != nil {
		return Script{}, err
	}
	if err := r.store.Set(ctx, scriptKey(in.ID), data); err != nil {
		return Script{}, fmt.Errorf("update script %s: %w", in.ID, err)
	}
	r.logger.Debug("script updated", F("id", in.ID))
	return s, nil
}

// Delete removes a script together with its index entry. The slug comes from
// the stored record, and the index entry is only removed while it still
// points at id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return invalid(msgIDRequired)
	}
	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	ops := []store.Op{store.Del(scriptKey(id))}
	if s.Name != "" {
		ops = append(ops, store.DelIfEquals(nameKey(s.Name), []byte(id)))
	}
	ops = append(ops, store.SRem(AllScriptsKey, id))
	if _, err := r.store.Tx(ctx, ops...); err != nil {
		return fmt.Errorf("delete script %s: %w", id, err)
	}
	r.logger.Info("script deleted", F("id", id), F("name", s.Name))
	return nil
}

// freeSlug returns base or the first base-N not yet indexed, checked in one
// pipelined round trip.
func (r *Repository) freeSlug(ctx context.Context, base, id string) (string, error) {
	if base == "" {
		return "script-" + id, nil
	}
	candidates := make([]string, maxSlugCandidates)
	ops := make([]store.Op, maxSlugCandidates)
	for i := range candidates {
		candidates[i] = base
		if i > 0 {
			candidates[i] = fmt.Sprintf("%s-%d", base, i+1)
		}
		ops[i] = store.Get(nameKey(candidates[i]))
	}
	results, err := r.store.Pipeline(ctx, ops...)
	if err != nil {
		return "", fmt.Errorf("check name %s: %w", base, err)
	}
	for i, res := range results {
		if !res.Found && res.Err == nil {
			return candidates[i], nil
		}
	}
	return base + "-" + id, nil
}

func (r *Repository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}
