package scriptstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/suyash-sneo/scriptstore/store"
)

// ReconcileReport summarises a repair pass.
type ReconcileReport struct {
	Scripts        int      `json:"scripts"`
	Unreadable     []string `json:"unreadable,omitempty"`
	IndexRemoved   []string `json:"indexRemoved,omitempty"`
	IndexRestored  []string `json:"indexRestored,omitempty"`
	MembersAdded   int      `json:"membersAdded"`
	MembersRemoved int      `json:"membersRemoved"`
}

// Changed reports whether the pass modified anything.
func (r ReconcileReport) Changed() bool {
	return len(r.IndexRemoved) > 0 || len(r.IndexRestored) > 0 || r.MembersAdded > 0 || r.MembersRemoved > 0
}

// Reconcile repairs drift between script records, the name index and the
// scripts:all set, such as that left by a create whose index write never
// landed. Index entries are removed only if they still hold the id that was
// read, and restored only if the slug is still free. Records that exist but
// cannot be read keep their index entry and scripts:all membership.
func (r *Repository) Reconcile(ctx context.Context) (ReconcileReport, error) {
	scripts, unreadable, err := r.scan(ctx)
	if err != nil {
		return ReconcileReport{}, err
	}
	report := ReconcileReport{Scripts: len(scripts)}
	if len(unreadable) > 0 {
		report.Unreadable = sortedKeys(unreadable)
	}

	index, err := r.readIndex(ctx)
	if err != nil {
		return ReconcileReport{}, err
	}
	members, err := r.store.Members(ctx, AllScriptsKey)
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("read %s: %w", AllScriptsKey, err)
	}

	var ops []store.Op
	claimed := make(map[string]bool, len(index))
	for _, slug := range sortedKeys(index) {
		id := index[slug]
		if s, ok := scripts[id]; (ok && s.Name == slug) || unreadable[id] {
			claimed[slug] = true
			continue
		}
		ops = append(ops, store.DelIfEquals(nameKey(slug), []byte(id)))
		report.IndexRemoved = append(report.IndexRemoved, slug)
	}
	for _, id := range sortedKeys(scripts) {
		s := scripts[id]
		if s.Name == "" || claimed[s.Name] {
			continue
		}
		claimed[s.Name] = true
		ops = append(ops, store.SetNX(nameKey(s.Name), []byte(id)))
		report.IndexRestored = append(report.IndexRestored, s.Name)
	}

	live := make(map[string]bool, len(members))
	for _, m := range members {
		live[m] = true
		if _, ok := scripts[m]; !ok && !unreadable[m] {
			ops = append(ops, store.SRem(AllScriptsKey, m))
			report.MembersRemoved++
		}
	}
	for _, id := range sortedKeys(scripts) {
		if !live[id] {
			ops = append(ops, store.SAdd(AllScriptsKey, id))
			report.MembersAdded++
		}
	}

	if len(ops) == 0 {
		return report, nil
	}
	if _, err := r.store.Tx(ctx, ops...); err != nil {
		return ReconcileReport{}, fmt.Errorf("apply repairs: %w", err)
	}
	r.logger.Info("reconcile applied",
		F("indexRemoved", len(report.IndexRemoved)),
		F("indexRestored", len(report.IndexRestored)),
		F("membersAdded", report.MembersAdded),
		F("membersRemoved", report.MembersRemoved),
	)
	return report, nil
}

// readIndex returns slug -> id for every name:* entry.
func (r *Repository) readIndex(ctx context.Context) (map[string]string, error) {
	keys, err := r.store.Keys(ctx, NameKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("list name keys: %w", err)
	}
	index := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return index, nil
	}
	ops := make([]store.Op, len(keys))
	for i, k := range keys {
		ops[i] = store.Get(k)
	}
	results, err := r.store.Pipeline(ctx, ops...)
	if err != nil {
		return nil, fmt.Errorf("fetch name index: %w", err)
	}
	for i, res := range results {
		slug := strings.TrimPrefix(keys[i], NameKeyPrefix)
		if res.Err != nil {
			r.logger.Warn("skipping unreadable name entry", F("slug", slug), F("err", res.Err))
			continue
		}
		if res.Found {
			index[slug] = string(res.Value)
		}
	}
	return index, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
