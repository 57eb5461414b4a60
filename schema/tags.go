package schema

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql"
)

var (
	timeType    = reflect.TypeFor[time.Time]()
	valuerType  = reflect.TypeFor[driver.Valuer]()
	scannerType = reflect.TypeFor[interface{ Scan(any) error }]()
)

// tag is the parsed form of a db struct tag.
type tag struct {
	name                        string
	skip                        bool
	pk, autoinc, noauto         bool
	readonly, msgpack, fk, many bool
}

func parseTag(s string) tag {
	if s == "-" {
		return tag{skip: true}
	}
	parts := strings.Split(s, ",")
	t := tag{name: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		switch strings.TrimSpace(p) {
		case "pk":
			t.pk = true
		case "autoinc":
			t.autoinc = true
		case "noauto":
			t.noauto = true
		case "readonly":
			t.readonly = true
		case "msgpack":
			t.msgpack = true
		case "fk":
			t.fk = true
		case "many":
			t.many = true
		}
	}
	return t
}

// isValueType reports whether a struct type is stored in a single column
// rather than flattened or treated as a relationship.
func isValueType(t reflect.Type) bool {
	t = indirect(t)
	if t == timeType {
		return true
	}
	return t.Implements(valuerType) || reflect.PointerTo(t).Implements(scannerType)
}

// parseFields walks the exported fields of t, flattening embedded structs.
func parseFields(info *TableInfo, t reflect.Type, index []int, naming Naming) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		raw, tagged := f.Tag.Lookup("db")
		tg := parseTag(raw)
		if tg.skip {
			continue
		}
		idx := append(append([]int(nil), index...), i)
		ft := indirect(f.Type)
		if f.Anonymous && tg.name == "" && ft.Kind() == reflect.Struct && !isValueType(ft) {
			if err := parseFields(info, ft, idx, naming); err != nil {
				return err
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		name := tg.name
		if name == "" {
			name = naming.Column(f.Name)
		}
		col := &ColumnInfo{
			Name:     name,
			Field:    f.Name,
			Index:    idx,
			Type:     f.Type,
			Key:      tg.pk,
			ReadOnly: tg.readonly,
		}
		switch {
		case tg.fk || tg.many:
			fk, err := foreignOf(f, tg, name)
			if err != nil {
				return err
			}
			col.Foreign = fk
		case !tagged && isRelationShape(f.Type):
			// Untagged struct and slice-of-struct fields are not mapped.
			continue
		default:
			if !sql.ValidAlias(name) {
				return &orma.InvalidNameError{Kind: "identifier", Name: name}
			}
			col.AutoIncrement = tg.autoinc || (tg.pk && !tg.noauto && isInteger(f.Type))
			if tg.msgpack {
				col.Translator = MsgpackTranslator{}
			}
		}
		info.Columns = append(info.Columns, col)
	}
	return nil
}

func isRelationShape(t reflect.Type) bool {
	t = indirect(t)
	if t.Kind() == reflect.Slice {
		t = indirect(t.Elem())
	}
	return t.Kind() == reflect.Struct && !isValueType(t)
}

func foreignOf(f reflect.StructField, tg tag, name string) (*Foreign, error) {
	fk := &Foreign{Collection: tg.many}
	t := indirect(f.Type)
	if tg.many {
		if t.Kind() != reflect.Slice {
			return nil, &orma.InvalidOperationError{Op: "describe", Reason: fmt.Sprintf("collection %s must be a slice, got %s", f.Name, f.Type)}
		}
		t = indirect(t.Elem())
		fk.TargetKey = name
	} else {
		fk.LocalKey = name
		fk.TargetKey = f.Tag.Get("ref")
	}
	if t.Kind() != reflect.Struct {
		return nil, &orma.InvalidOperationError{Op: "describe", Reason: fmt.Sprintf("relationship %s must reference a struct, got %s", f.Name, f.Type)}
	}
	if !sql.ValidAlias(name) {
		return nil, &orma.InvalidNameError{Kind: "identifier", Name: name}
	}
	fk.Target = t
	return fk, nil
}
