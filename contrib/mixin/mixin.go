// Package mixin provides common table mixins.
//
// These mixins are OPTIONAL and provided as convenient starting points.
//
// Available mixins:
//   - CreateTime: fills created_at on insert
//   - UpdateTime: fills updated_at on insert and update
//   - Time: combines CreateTime and UpdateTime
//   - ID: generates a UUID primary key on insert
//   - SoftDelete: deletes by setting a flag column
//   - TimeSoftDelete: combines Time and SoftDelete
//
// Usage:
//
//	func (Order) Mixin() []schema.Mixin {
//	    return []schema.Mixin{
//	        mixin.Time{},
//	        mixin.SoftDelete{},
//	    }
//	}
package mixin

import (
	"reflect"

	"github.com/google/uuid"

	"github.com/syssam/orma/schema"
)

// CreateTime sets the column written with the current time on insert.
// Column defaults to created_at.
type CreateTime struct{ Column string }

// Apply implements schema.Mixin.
func (m CreateTime) Apply(t *schema.TableInfo) {
	t.CreatedAt = or(m.Column, "created_at")
}

// UpdateTime sets the column written with the current time on insert and
// update. Column defaults to updated_at.
type UpdateTime struct{ Column string }

// Apply implements schema.Mixin.
func (m UpdateTime) Apply(t *schema.TableInfo) {
	t.UpdatedAt = or(m.Column, "updated_at")
}

// Time composes CreateTime and UpdateTime with their default columns.
type Time struct{}

// Apply implements schema.Mixin.
func (Time) Apply(t *schema.TableInfo) {
	CreateTime{}.Apply(t)
	UpdateTime{}.Apply(t)
}

// ID generates a random UUID for the primary key when it is zero at insert.
// The key field must be a uuid.UUID or a string.
type ID struct{}

// Apply implements schema.Mixin.
func (ID) Apply(t *schema.TableInfo) {
	key := t.Key()
	if key == nil {
		return
	}
	key.AutoIncrement = false
	switch key.Type {
	case uuidType:
		key.Generate = func() any { return uuid.New() }
	default:
		key.Generate = func() any { return uuid.NewString() }
	}
}

// SoftDelete marks rows deleted instead of removing them. Column defaults
// to deleted. DateColumn is optional and records when the row was deleted.
//
// Queries on the table hide deleted rows unless asked otherwise:
//
//	q.WithTrashed()  // every row
//	q.OnlyTrashed()  // deleted rows only
type SoftDelete struct {
	Column     string
	DateColumn string
}

// Apply implements schema.Mixin.
func (m SoftDelete) Apply(t *schema.TableInfo) {
	t.SetSoftDelete(or(m.Column, "deleted"), m.DateColumn)
}

// TimeSoftDelete composes Time and SoftDelete with a deleted_at column.
type TimeSoftDelete struct{}

// Apply implements schema.Mixin.
func (TimeSoftDelete) Apply(t *schema.TableInfo) {
	Time{}.Apply(t)
	SoftDelete{DateColumn: "deleted_at"}.Apply(t)
}

var uuidType = reflect.TypeFor[uuid.UUID]()

func or(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

var (
	_ schema.Mixin = CreateTime{}
	_ schema.Mixin = UpdateTime{}
	_ schema.Mixin = Time{}
	_ schema.Mixin = ID{}
	_ schema.Mixin = SoftDelete{}
	_ schema.Mixin = TimeSoftDelete{}
)
