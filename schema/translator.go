package schema

import (
	"database/sql/driver"
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Translator converts values between Go fields and database columns.
type Translator interface {
	// ToSQL converts a field value into a driver value.
	ToSQL(v any) (any, error)
	// FromSQL converts a driver value into a value assignable to t.
	FromSQL(v any, t reflect.Type) (any, error)
}

// Default is the translator used when a column sets none.
var Default Translator = DefaultTranslator{}

// timeLayouts are tried in order when a time is stored as text, as SQLite does.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC3339Nano,
}

var (
	uuidType            = reflect.TypeFor[uuid.UUID]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// DefaultTranslator handles the scalar kinds, named enum types, time.Time,
// uuid.UUID, []byte, pointers and types implementing sql.Scanner.
type DefaultTranslator struct {
	// Location is applied to times parsed from text. Defaults to UTC.
	Location *time.Location
}

// ToSQL implements Translator.
func (d DefaultTranslator) ToSQL(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		if vr, ok := rv.Interface().(driver.Valuer); ok {
			return vr.Value()
		}
		rv = rv.Elem()
	}
	switch x := rv.Interface().(type) {
	case driver.Valuer:
		return x.Value()
	case time.Time:
		return x, nil
	case []byte:
		return x, nil
	}
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Bytes(), nil
		}
	}
	return nil, fmt.Errorf("unsupported type %s", rv.Type())
}

// FromSQL implements Translator.
func (d DefaultTranslator) FromSQL(v any, t reflect.Type) (any, error) {
	rv, err := d.convert(v, t)
	if err != nil {
		return nil, err
	}
	return rv.Interface(), nil
}

func (d DefaultTranslator) convert(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	if t.Kind() == reflect.Pointer {
		e, err := d.convert(v, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(e)
		return p, nil
	}
	src := reflect.ValueOf(v)
	if b, ok := v.([]byte); ok {
		// Drivers may reuse the buffer.
		v = append([]byte(nil), b...)
		src = reflect.ValueOf(v)
	}
	if src.Type() == t {
		return src, nil
	}
	switch t {
	case timeType:
		tm, err := d.parseTime(v)
		return reflect.ValueOf(tm), err
	case uuidType:
		id, err := parseUUID(v)
		return reflect.ValueOf(id), err
	}
	if pt := reflect.PointerTo(t); pt.Implements(scannerType) {
		p := reflect.New(t)
		if err := p.Interface().(interface{ Scan(any) error }).Scan(v); err != nil {
			return reflect.Value{}, err
		}
		return p.Elem(), nil
	}
	if s, ok := asText(v); ok && t.Kind() != reflect.String && reflect.PointerTo(t).Implements(textUnmarshalerType) {
		p := reflect.New(t)
		if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return reflect.Value{}, err
		}
		return p.Elem(), nil
	}
	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		b, err := toBool(v)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b)
		return out, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if out.OverflowInt(n) {
			return reflect.Value{}, fmt.Errorf("value %d overflows %s", n, t)
		}
		out.SetInt(n)
		return out, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if n < 0 || out.OverflowUint(uint64(n)) {
			return reflect.Value{}, fmt.Errorf("value %d overflows %s", n, t)
		}
		out.SetUint(uint64(n))
		return out, nil
	case reflect.Float32, reflect.Float64:
		f, err := toFloat(v)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(f)
		return out, nil
	case reflect.String:
		switch x := v.(type) {
		case string:
			out.SetString(x)
		case []byte:
			out.SetString(string(x))
		case time.Time:
			out.SetString(x.Format(time.RFC3339Nano))
		default:
			out.SetString(fmt.Sprint(x))
		}
		return out, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			if s, ok := asText(v); ok {
				out.SetBytes([]byte(s))
				return out, nil
			}
		}
	}
	if src.Type().ConvertibleTo(t) {
		return src.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", v, t)
}

func (d DefaultTranslator) parseTime(v any) (time.Time, error) {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case int64:
		return time.Unix(x, 0).In(loc), nil
	}
	s, ok := asText(v)
	if !ok {
		return time.Time{}, fmt.Errorf("cannot convert %T to time.Time", v)
	}
	for _, layout := range timeLayouts {
		if tm, err := time.ParseInLocation(layout, s, loc); err == nil {
			return tm, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}

func parseUUID(v any) (uuid.UUID, error) {
	switch x := v.(type) {
	case string:
		return uuid.Parse(x)
	case []byte:
		if len(x) == 16 {
			return uuid.FromBytes(x)
		}
		return uuid.ParseBytes(x)
	}
	return uuid.Nil, fmt.Errorf("cannot convert %T to uuid.UUID", v)
}

func asText(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	}
	return "", false
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case float64:
		return x != 0, nil
	}
	if s, ok := asText(v); ok {
		return strconv.ParseBool(s)
	}
	n, err := toInt(v)
	return n != 0, err
}

func toInt(v any) (int64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()), nil
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	}
	if s, ok := asText(v); ok {
		return strconv.ParseInt(s, 10, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to integer", v)
}

func toFloat(v any) (float64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	if s, ok := asText(v); ok {
		return strconv.ParseFloat(s, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to float", v)
}

// MsgpackTranslator stores any Go value as a msgpack encoded blob.
type MsgpackTranslator struct{}

// ToSQL implements Translator.
func (MsgpackTranslator) ToSQL(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, nil
	}
	return msgpack.Marshal(v)
}

// FromSQL implements Translator.
func (MsgpackTranslator) FromSQL(v any, t reflect.Type) (any, error) {
	if v == nil {
		return reflect.Zero(t).Interface(), nil
	}
	b, ok := v.([]byte)
	if !ok {
		s, isText := v.(string)
		if !isText {
			return nil, fmt.Errorf("cannot decode msgpack from %T", v)
		}
		b = []byte(s)
	}
	p := reflect.New(t)
	if err := msgpack.Unmarshal(b, p.Interface()); err != nil {
		return nil, err
	}
	return p.Elem().Interface(), nil
}
