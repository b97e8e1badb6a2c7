package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"stockroom/internal/codec"
	"stockroom/internal/logdetail"
	"stockroom/pkg/domain"
)

type keyStrategy int

const (
	keyProvided keyStrategy = iota
	keySequential
	keyTimed
)

// auditTemplate describes how mutations of a kind are worded in the audit log.
type auditTemplate[T any] struct {
	noun       string
	createVerb string
	updateVerb string
	subject    func(T) string
}

// schema configures a Table for one record kind.
type schema[T any] struct {
	codec    codec.Codec[T]
	key      func(T) string
	setKey   func(*T, string)
	strategy keyStrategy
	prefix   string
	// prepare normalises a record before validation; an error is reported as
	// a validation failure.
	prepare  func(*T) error
	validate func(T) string
	// conflict returns a non-empty reason when candidate may not coexist with
	// existing.
	conflict func(existing, candidate T) string
	// guard vets a full-record Update against the stored record; it may fill
	// fields the caller left blank from existing.
	guard    func(existing T, candidate *T) error
	audit    *auditTemplate[T]
}

// Table owns the records of one kind. Every operation holds the table lock;
// mutations build a new slice, persist it, and only then replace the
// in-memory state, so a failed write leaves the table untouched.
type Table[T any] struct {
	reg     *Registry
	schema  schema[T]
	lock    *storeLock
	records []T
	index   map[string]int
}

func newTable[T any](reg *Registry, s schema[T]) *Table[T] {
	return &Table[T]{reg: reg, schema: s, lock: newStoreLock(), index: make(map[string]int)}
}

// Kind returns the record kind held by the table.
func (t *Table[T]) Kind() domain.Kind { return t.schema.codec.Kind }

func (t *Table[T]) load(ctx context.Context) error {
	lines, err := t.reg.store.Load(ctx, t.Kind())
	if err != nil {
		return domain.NewError("load", t.Kind(), "", domain.ErrIO, "").WithCause(err)
	}
	records, err := t.schema.codec.DecodeAll(lines)
	if err != nil {
		return fmt.Errorf("load %s: %w", t.Kind(), err)
	}
	index := make(map[string]int, len(records))
	for i, rec := range records {
		index[t.schema.key(rec)] = i
	}
	t.records = records
	t.index = index
	return nil
}

func (t *Table[T]) enter(ctx context.Context, op, key string) error {
	if err := t.lock.acquire(ctx, t.reg.lockTimeout); err != nil {
		if errors.Is(err, domain.ErrBusy) {
			return domain.NewError(op, t.Kind(), key, domain.ErrBusy, fmt.Sprintf("lock not acquired within %s", t.reg.lockTimeout))
		}
		return fmt.Errorf("%s %s: %w", op, t.Kind().Label(), err)
	}
	return nil
}

func (t *Table[T]) observe(ctx context.Context, op string, start time.Time, err error) {
	t.reg.metrics.Observe(ctx, string(t.Kind())+"."+op, err == nil, time.Since(start))
	if err == nil {
		return
	}
	if errors.Is(err, domain.ErrIO) {
		t.reg.logger.Error("store operation failed", "kind", t.Kind(), "op", op, "error", err)
		return
	}
	t.reg.logger.Debug("store operation rejected", "kind", t.Kind(), "op", op, "error", err)
}

// List returns every record in insertion order. The result is never nil.
func (t *Table[T]) List(ctx context.Context) (out []T, err error) {
	defer func(start time.Time) { t.observe(ctx, "list", start, err) }(time.Now())
	if err = t.enter(ctx, "list", ""); err != nil {
		return nil, err
	}
	defer t.lock.release()
	out = make([]T, len(t.records))
	copy(out, t.records)
	return out, nil
}

// Filter returns the records matching keep, in insertion order.
func (t *Table[T]) Filter(ctx context.Context, keep func(T) bool) (out []T, err error) {
	defer func(start time.Time) { t.observe(ctx, "filter", start, err) }(time.Now())
	if err = t.enter(ctx, "filter", ""); err != nil {
		return nil, err
	}
	defer t.lock.release()
	out = make([]T, 0)
	for _, rec := range t.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Get returns the record stored under key.
func (t *Table[T]) Get(ctx context.Context, key string) (rec T, err error) {
	defer func(start time.Time) { t.observe(ctx, "get", start, err) }(time.Now())
	if err = t.enter(ctx, "get", key); err != nil {
		return rec, err
	}
	defer t.lock.release()
	idx, ok := t.index[key]
	if !ok {
		return rec, domain.NewError("get", t.Kind(), key, domain.ErrNotFound, "")
	}
	return t.records[idx], nil
}

// Add validates rec, assigns a key when rec has none, persists it, and writes
// a Create audit entry. The assigned key is returned.
func (t *Table[T]) Add(ctx context.Context, rec T) (string, error) {
	stored, err := t.add(ctx, rec)
	if err != nil {
		return "", err
	}
	t.auditRecord(ctx, domain.ActionCreate, t.auditVerb(domain.ActionCreate), stored)
	return t.schema.key(stored), nil
}

func (t *Table[T]) add(ctx context.Context, rec T) (stored T, err error) {
	key := t.schema.key(rec)
	defer func(start time.Time) { t.observe(ctx, "add", start, err) }(time.Now())
	if err = t.enter(ctx, "add", key); err != nil {
		return stored, err
	}
	defer t.lock.release()

	if err = t.check("add", key, &rec, -1); err != nil {
		return stored, err
	}
	switch {
	case key != "":
		if _, taken := t.index[key]; taken {
			return stored, domain.NewError("add", t.Kind(), key, domain.ErrDuplicate, "key already exists")
		}
	case t.schema.strategy == keyProvided:
		return stored, domain.NewError("add", t.Kind(), "", domain.ErrValidation, "key is required")
	default:
		key = t.nextKey()
		t.schema.setKey(&rec, key)
	}
	next := append(slices.Clone(t.records), rec)
	if err = t.commit(ctx, "add", key, next); err != nil {
		return stored, err
	}
	return rec, nil
}

// Update replaces the record stored under rec's key and writes an Update
// audit entry.
func (t *Table[T]) Update(ctx context.Context, rec T) (err error) {
	key := t.schema.key(rec)
	defer func(start time.Time) { t.observe(ctx, "update", start, err) }(time.Now())
	if err = t.enter(ctx, "update", key); err != nil {
		return err
	}
	idx, ok := t.index[key]
	if !ok {
		t.lock.release()
		return domain.NewError("update", t.Kind(), key, domain.ErrNotFound, "")
	}
	if t.schema.guard != nil {
		if err = t.schema.guard(t.records[idx], &rec); err != nil {
			t.lock.release()
			return err
		}
	}
	if err = t.check("update", key, &rec, idx); err != nil {
		t.lock.release()
		return err
	}
	next := slices.Clone(t.records)
	next[idx] = rec
	err = t.commit(ctx, "update", key, next)
	t.lock.release()
	if err != nil {
		return err
	}
	t.auditRecord(ctx, domain.ActionUpdate, t.auditVerb(domain.ActionUpdate), rec)
	return nil
}

// Delete removes the record stored under key and writes a Delete audit entry.
func (t *Table[T]) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { t.observe(ctx, "delete", start, err) }(time.Now())
	if err = t.enter(ctx, "delete", key); err != nil {
		return err
	}
	idx, ok := t.index[key]
	if !ok {
		t.lock.release()
		return domain.NewError("delete", t.Kind(), key, domain.ErrNotFound, "")
	}
	removed := t.records[idx]
	next := slices.Delete(slices.Clone(t.records), idx, idx+1)
	err = t.commit(ctx, "delete", key, next)
	t.lock.release()
	if err != nil {
		return err
	}
	t.auditRecord(ctx, domain.ActionDelete, logdetail.VerbDeleted, removed)
	return nil
}

// replace applies fn to the record under key and persists the result without
// auditing; callers write their own, more specific, audit entry.
func (t *Table[T]) replace(ctx context.Context, op, key string, fn func(cur T) (T, error)) (updated T, err error) {
	defer func(start time.Time) { t.observe(ctx, op, start, err) }(time.Now())
	if err = t.enter(ctx, op, key); err != nil {
		return updated, err
	}
	defer t.lock.release()
	idx, ok := t.index[key]
	if !ok {
		return updated, domain.NewError(op, t.Kind(), key, domain.ErrNotFound, "")
	}
	rec, err := fn(t.records[idx])
	if err != nil {
		return updated, err
	}
	if t.schema.key(rec) != key {
		return updated, domain.NewError(op, t.Kind(), key, domain.ErrInvalidInput, "key cannot change")
	}
	if err = t.check(op, key, &rec, idx); err != nil {
		return updated, err
	}
	next := slices.Clone(t.records)
	next[idx] = rec
	if err = t.commit(ctx, op, key, next); err != nil {
		return updated, err
	}
	return rec, nil
}

// check runs prepare, validate and the uniqueness predicate against every
// record except the one at skip.
func (t *Table[T]) check(op, key string, rec *T, skip int) error {
	if t.schema.prepare != nil {
		if err := t.schema.prepare(rec); err != nil {
			return domain.NewError(op, t.Kind(), key, domain.ErrValidation, err.Error())
		}
	}
	if t.schema.validate != nil {
		if problem := t.schema.validate(*rec); problem != "" {
			return domain.NewError(op, t.Kind(), key, domain.ErrValidation, problem)
		}
	}
	if t.schema.conflict != nil {
		for i, existing := range t.records {
			if i == skip {
				continue
			}
			if reason := t.schema.conflict(existing, *rec); reason != "" {
				return domain.NewError(op, t.Kind(), key, domain.ErrDuplicate, reason)
			}
		}
	}
	return nil
}

func (t *Table[T]) nextKey() string {
	taken := func(k string) bool { _, ok := t.index[k]; return ok }
	if t.schema.strategy == keySequential {
		return SequentialKey(t.schema.prefix, len(t.records), taken)
	}
	for {
		if k := t.reg.ids.timeKey(t.schema.prefix); !taken(k) {
			return k
		}
	}
}

func (t *Table[T]) commit(ctx context.Context, op, key string, next []T) error {
	if err := t.reg.store.Save(ctx, t.Kind(), t.schema.codec.EncodeAll(next)); err != nil {
		return domain.NewError(op, t.Kind(), key, domain.ErrIO, "").WithCause(err)
	}
	index := make(map[string]int, len(next))
	for i, rec := range next {
		index[t.schema.key(rec)] = i
	}
	t.records = next
	t.index = index
	return nil
}

func (t *Table[T]) auditVerb(action domain.Action) string {
	if t.schema.audit == nil {
		return ""
	}
	if action == domain.ActionCreate {
		return t.schema.audit.createVerb
	}
	return t.schema.audit.updateVerb
}

func (t *Table[T]) auditRecord(ctx context.Context, action domain.Action, verb string, rec T) {
	tmpl := t.schema.audit
	if tmpl == nil {
		return
	}
	subject := t.schema.key(rec)
	if tmpl.subject != nil {
		subject = tmpl.subject(rec)
	}
	t.reg.audit.record(ctx, action, logdetail.Record(verb, tmpl.noun, subject))
}
