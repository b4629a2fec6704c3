package upsert

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"gorm.io/gorm"

	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
)

type Outcome string

const (
	Created   Outcome = "created"
	Updated   Outcome = "updated"
	Unchanged Outcome = "unchanged"
	Skipped   Outcome = "skipped"
)

// Keyed is a fact that can be found by its natural key. Both maps are keyed by
// column name.
type Keyed interface {
	NaturalKey() map[string]any
	Mutable() map[string]any
}

// Row constrains T to a fact whose pointer implements Keyed.
type Row[T any] interface {
	*T
	Keyed
}

// Upsert finds row by its natural key and creates it, updates only the
// mutable columns that differ, or leaves it alone. On return row holds the
// persisted state.
func Upsert[T any, P Row[T]](dbc dbctx.Context, db *gorm.DB, row P) (Outcome, error) {
	tx := dbc.DB(db)
	key := row.NaturalKey()
	if len(key) == 0 {
		return "", fmt.Errorf("upsert %T: empty natural key", row)
	}

	var existing T
	err := tx.Where(key).Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := tx.Create(row).Error; err != nil {
			return "", fmt.Errorf("create %T: %w", row, err)
		}
		return Created, nil
	case err != nil:
		return "", fmt.Errorf("find %T: %w", row, err)
	}

	changed := Diff(P(&existing).Mutable(), row.Mutable())
	if len(changed) == 0 {
		*row = existing
		return Unchanged, nil
	}
	if err := tx.Model(&existing).Updates(changed).Error; err != nil {
		return "", fmt.Errorf("update %T: %w", row, err)
	}
	var fresh T
	if err := tx.Where(key).Take(&fresh).Error; err != nil {
		return "", fmt.Errorf("reload %T: %w", row, err)
	}
	*row = fresh
	return Updated, nil
}

// CreateOnce writes rows only when no row of T carries externalID yet. A
// submission already imported is Skipped as a whole.
func CreateOnce[T any](dbc dbctx.Context, db *gorm.DB, externalID string, rows []*T) (Outcome, error) {
	tx := dbc.DB(db)
	var n int64
	if err := tx.Model(new(T)).Where("external_id = ?", externalID).Count(&n).Error; err != nil {
		return "", fmt.Errorf("count %T: %w", new(T), err)
	}
	if n > 0 {
		return Skipped, nil
	}
	if len(rows) == 0 {
		return Unchanged, nil
	}
	if err := tx.Create(&rows).Error; err != nil {
		return "", fmt.Errorf("create %T: %w", new(T), err)
	}
	return Created, nil
}

// Diff returns the entries of next whose value differs from current.
func Diff(current, next map[string]any) map[string]any {
	out := map[string]any{}
	for col, v := range next {
		if !Equal(current[col], v) {
			out[col] = v
		}
	}
	return out
}

// Equal compares column values, dereferencing pointers and comparing times
// by instant at microsecond precision, the finest postgres stores.
func Equal(a, b any) bool {
	a, b = deref(a), deref(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Truncate(time.Microsecond).Equal(tb.Truncate(time.Microsecond))
	}
	return reflect.DeepEqual(a, b)
}

func deref(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}
