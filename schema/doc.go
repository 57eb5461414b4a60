// Package schema describes how Go struct types map onto tables.
//
// A TableInfo is derived from struct tags the first time a type is used
// and cached for the life of the process:
//
//	type Order struct {
//	    ID         int       `db:"id,pk"`
//	    CustomerID int       `db:"customer_id"`
//	    Customer   *Customer `db:"customer_id,fk"`
//	    Items      []*Item   `db:"order_id,many"`
//	    Notes      Notes     `db:"notes,msgpack"`
//	    Internal   string    `db:"-"`
//	}
//
// Tag options:
//
//   - pk: primary key. A field named ID is the key when no field is tagged.
//   - autoinc: generated by the database. Integer keys default to it.
//   - readonly: read by queries, never written.
//   - msgpack: stored as a msgpack blob through MsgpackTranslator.
//   - fk: single-valued relationship; the tag name is the local key column,
//     the ref tag names the target column (default: the target's key).
//   - many: collection; the tag name is the column on the target table
//     that references this table's key.
//
// Types may implement TableName() string and Mixin() []Mixin. Register
// installs a TableInfo built from explicit options instead.
package schema
