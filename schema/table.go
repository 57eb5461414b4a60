package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql"
)

// Mixin adds behavior to a table, such as soft delete or timestamps.
type Mixin interface {
	Apply(*TableInfo)
}

// TableInfo is the mapping of one Go struct type. It is immutable once
// returned by Describe or Register.
type TableInfo struct {
	Type       reflect.Type
	Name       string
	Columns    []*ColumnInfo
	SoftDelete *sql.SoftDelete
	CreatedAt  string // column filled on insert
	UpdatedAt  string // column filled on insert and update

	byColumn map[string]*ColumnInfo
	byField  map[string]*ColumnInfo
}

// Foreign describes a relationship member.
type Foreign struct {
	Target     reflect.Type // element struct type
	LocalKey   string       // owner column holding the key
	TargetKey  string       // target column matched against the key
	Collection bool
}

// Table describes the target type.
func (f *Foreign) Table() (*TableInfo, error) {
	return Describe(f.Target)
}

// KeyColumn returns the target column matched against the key: the ref
// column or the target's primary key for single relationships, the
// referencing column for collections.
func (f *Foreign) KeyColumn() (string, error) {
	if f.TargetKey != "" {
		return f.TargetKey, nil
	}
	t, err := f.Table()
	if err != nil {
		return "", err
	}
	if k := t.Key(); k != nil {
		return k.Name, nil
	}
	return "", &orma.InvalidOperationError{Op: "describe", Reason: fmt.Sprintf("%s has no primary key", t.Label())}
}

// ColumnInfo is the mapping of one struct field.
type ColumnInfo struct {
	Name          string
	Field         string
	Index         []int
	Type          reflect.Type
	Key           bool
	AutoIncrement bool
	ReadOnly      bool
	Foreign       *Foreign
	Translator    Translator
	// Generate produces a key for inserts when the field is zero.
	Generate func() any
}

// Native reports whether the column holds a value rather than a relationship.
func (c *ColumnInfo) Native() bool { return c.Foreign == nil }

// translator returns the column translator, falling back to def.
func (c *ColumnInfo) translator(def Translator) Translator {
	if c.Translator != nil {
		return c.Translator
	}
	if def != nil {
		return def
	}
	return Default
}

// FieldOf returns the struct field of v (a struct value) or an invalid
// value when an embedded pointer on the path is nil.
func (c *ColumnInfo) FieldOf(v reflect.Value) reflect.Value {
	f, err := v.FieldByIndexErr(c.Index)
	if err != nil {
		return reflect.Value{}
	}
	return f
}

// settable returns the field of v, allocating nil embedded pointers.
func (c *ColumnInfo) settable(v reflect.Value) reflect.Value {
	for i, x := range c.Index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}

// Get returns the field value of v as stored in the struct.
func (c *ColumnInfo) Get(v reflect.Value) any {
	f := c.FieldOf(v)
	if !f.IsValid() {
		return nil
	}
	return f.Interface()
}

// Value returns the database value of the field through the translator.
func (c *ColumnInfo) Value(v reflect.Value, def Translator) (any, error) {
	f := c.FieldOf(v)
	if !f.IsValid() {
		return nil, nil
	}
	return c.translator(def).ToSQL(f.Interface())
}

// Set converts raw through the translator and stores it into v.
func (c *ColumnInfo) Set(v reflect.Value, raw any, def Translator) error {
	val, err := c.translator(def).FromSQL(raw, c.Type)
	if err != nil {
		return err
	}
	return c.SetValue(v, val)
}

// SetValue stores an already converted value into v.
func (c *ColumnInfo) SetValue(v reflect.Value, val any) error {
	f := c.settable(v)
	rv := reflect.ValueOf(val)
	switch {
	case !rv.IsValid():
		f.Set(reflect.Zero(f.Type()))
	case rv.Type().AssignableTo(f.Type()):
		f.Set(rv)
	case rv.Type().ConvertibleTo(f.Type()):
		f.Set(rv.Convert(f.Type()))
	default:
		return fmt.Errorf("cannot assign %s to field %s of type %s", rv.Type(), c.Field, f.Type())
	}
	return nil
}

// Column returns the native column with the given name, case-insensitively.
func (t *TableInfo) Column(name string) (*ColumnInfo, bool) {
	c, ok := t.byColumn[strings.ToLower(name)]
	return c, ok
}

// Field returns the column mapped by the Go field name.
func (t *TableInfo) Field(name string) (*ColumnInfo, bool) {
	if c, ok := t.byField[name]; ok {
		return c, true
	}
	for _, c := range t.Columns {
		if strings.EqualFold(c.Field, name) {
			return c, true
		}
	}
	return nil, false
}

// Key returns the primary key column, or nil.
func (t *TableInfo) Key() *ColumnInfo {
	for _, c := range t.Columns {
		if c.Key {
			return c
		}
	}
	return nil
}

// Natives returns the value columns in declaration order.
func (t *TableInfo) Natives() []*ColumnInfo {
	cols := make([]*ColumnInfo, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Native() {
			cols = append(cols, c)
		}
	}
	return cols
}

// Foreigns returns the relationship columns in declaration order.
func (t *TableInfo) Foreigns() []*ColumnInfo {
	var cols []*ColumnInfo
	for _, c := range t.Columns {
		if !c.Native() {
			cols = append(cols, c)
		}
	}
	return cols
}

// Label returns the Go type name used in error messages.
func (t *TableInfo) Label() string {
	return t.Type.Name()
}

// New allocates a zero value and returns a pointer to it.
func (t *TableInfo) New() reflect.Value {
	return reflect.New(t.Type)
}

// SetSoftDelete is used by mixins to enable soft delete.
func (t *TableInfo) SetSoftDelete(column, dateColumn string) {
	t.SoftDelete = &sql.SoftDelete{Column: column, DateColumn: dateColumn}
}

// Option configures an explicit registration.
type Option func(*options)

type options struct {
	table       string
	naming      Naming
	key         string
	mixins      []Mixin
	translators map[string]Translator
}

// WithTable sets the table name.
func WithTable(name string) Option {
	return func(o *options) { o.table = name }
}

// WithNaming sets the naming strategy for untagged fields and the table.
func WithNaming(n Naming) Option {
	return func(o *options) { o.naming = n }
}

// WithKey marks the column as the primary key.
func WithKey(column string) Option {
	return func(o *options) { o.key = column }
}

// WithMixin applies mixins after the tags are parsed.
func WithMixin(m ...Mixin) Option {
	return func(o *options) { o.mixins = append(o.mixins, m...) }
}

// WithTranslator sets the translator of one column.
func WithTranslator(column string, tr Translator) Option {
	return func(o *options) {
		if o.translators == nil {
			o.translators = make(map[string]Translator)
		}
		o.translators[column] = tr
	}
}

var (
	tables sync.Map // reflect.Type -> *TableInfo
	group  singleflight.Group
)

// Describe returns the cached mapping of t, building it from struct tags
// on first use. Concurrent first calls build once.
func Describe(t reflect.Type) (*TableInfo, error) {
	t = indirect(t)
	if v, ok := tables.Load(t); ok {
		return v.(*TableInfo), nil
	}
	v, err, _ := group.Do(t.PkgPath()+"."+t.String(), func() (any, error) {
		if v, ok := tables.Load(t); ok {
			return v, nil
		}
		info, err := build(t, nil)
		if err != nil {
			return nil, err
		}
		v, _ := tables.LoadOrStore(t, info)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	info := v.(*TableInfo)
	if info.Type != t {
		// Distinct anonymous types may share a flight key.
		return build(t, nil)
	}
	return info, nil
}

// Of is a generic shorthand for Describe.
func Of[T any]() (*TableInfo, error) {
	return Describe(reflect.TypeFor[T]())
}

// Register builds the mapping of t from explicit options and installs it,
// replacing any cached mapping. Values already handed out stay valid.
func Register(t reflect.Type, opts ...Option) (*TableInfo, error) {
	t = indirect(t)
	info, err := build(t, opts)
	if err != nil {
		return nil, err
	}
	tables.Store(t, info)
	return info, nil
}

// Forget drops the cached mapping of t.
func Forget(t reflect.Type) {
	tables.Delete(indirect(t))
}

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

type tableNamer interface{ TableName() string }

type mixer interface{ Mixin() []Mixin }

func build(t reflect.Type, opts []Option) (*TableInfo, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, &orma.InvalidOperationError{Op: "describe", Reason: fmt.Sprintf("%v is not a struct type", t)}
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	info := &TableInfo{Type: t}
	if err := parseFields(info, t, nil, o.naming); err != nil {
		return nil, err
	}
	zero := reflect.New(t).Interface()
	switch n, ok := zero.(tableNamer); {
	case o.table != "":
		info.Name = o.table
	case ok:
		info.Name = n.TableName()
	default:
		info.Name = o.naming.Table(t.Name())
	}
	if !sql.ValidName(info.Name) {
		return nil, &orma.InvalidNameError{Kind: "identifier", Name: info.Name}
	}
	info.index()
	if err := info.resolveKey(o.key); err != nil {
		return nil, err
	}
	for col, tr := range o.translators {
		c, ok := info.Column(col)
		if !ok {
			return nil, &orma.InvalidOperationError{Op: "register", Reason: fmt.Sprintf("%s has no column %q", t.Name(), col)}
		}
		c.Translator = tr
	}
	var mixins []Mixin
	if m, ok := zero.(mixer); ok {
		mixins = append(mixins, m.Mixin()...)
	}
	for _, m := range append(mixins, o.mixins...) {
		m.Apply(info)
	}
	return info, nil
}

func (t *TableInfo) index() {
	t.byColumn = make(map[string]*ColumnInfo, len(t.Columns))
	t.byField = make(map[string]*ColumnInfo, len(t.Columns))
	for _, c := range t.Columns {
		t.byField[c.Field] = c
		if c.Native() {
			t.byColumn[strings.ToLower(c.Name)] = c
		}
	}
}

func (t *TableInfo) resolveKey(explicit string) error {
	key := t.Key()
	switch {
	case explicit != "":
		c, ok := t.Column(explicit)
		if !ok {
			return &orma.InvalidOperationError{Op: "register", Reason: fmt.Sprintf("%s has no key column %q", t.Type.Name(), explicit)}
		}
		if key != nil {
			key.Key = false
		}
		key = c
	case key == nil:
		if c, ok := t.Column("id"); ok {
			key = c
		} else if c, ok := t.Field("ID"); ok && c.Native() {
			key = c
		}
	}
	if key == nil {
		return nil
	}
	if !key.Key {
		key.Key = true
		key.AutoIncrement = key.AutoIncrement || isInteger(key.Type)
	}
	for _, c := range t.Foreigns() {
		if c.Foreign.Collection && c.Foreign.LocalKey == "" {
			c.Foreign.LocalKey = key.Name
		}
	}
	return nil
}

func isInteger(t reflect.Type) bool {
	switch indirect(t).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
