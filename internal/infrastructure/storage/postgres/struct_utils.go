package postgres

import (
	"reflect"
	"sync"
)

// structPlan is the cached reflection layout of an entity struct: which
// fields carry a "db" tag and which are embedded and need recursion.
type structPlan struct {
	tagged   []taggedField
	embedded []int
}

type taggedField struct {
	index  int
	column string
}

// plans caches one structPlan per entity type. Repositories map the same
// handful of types over and over, so reflection runs once per type.
var plans sync.Map // reflect.Type -> *structPlan

func planFor(t reflect.Type) *structPlan {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := plans.Load(t); ok {
		return cached.(*structPlan)
	}

	plan := &structPlan{}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Anonymous {
				plan.embedded = append(plan.embedded, i)
				continue
			}
			tag := f.Tag.Get("db")
			if tag == "" || tag == "-" {
				continue
			}
			plan.tagged = append(plan.tagged, taggedField{index: i, column: tag})
		}
	}

	plans.Store(t, plan)
	return plan
}

// ExtractDBColumns lists the column names declared by a struct's "db"
// tags, walking embedded structs such as entity.Catalog in declaration
// order. Repositories call it once at construction to build SELECT lists.
func ExtractDBColumns[T any]() []string {
	var zero T
	return columnsOf(reflect.TypeOf(zero))
}

func columnsOf(t reflect.Type) []string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	plan := planFor(t)
	cols := make([]string, 0, len(plan.tagged))
	for _, i := range plan.embedded {
		cols = append(cols, columnsOf(t.Field(i).Type)...)
	}
	for _, f := range plan.tagged {
		cols = append(cols, f.column)
	}
	return cols
}

// StructToMap flattens an entity into a column->value map keyed by "db"
// tags, for squirrel INSERT/UPDATE SetMap calls. Untagged and "-" fields
// are skipped; embedded structs contribute their own tagged fields.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	plan := planFor(rv.Type())
	out := make(map[string]any, len(plan.tagged))

	for _, i := range plan.embedded {
		for col, val := range StructToMap(rv.Field(i).Interface()) {
			out[col] = val
		}
	}
	for _, f := range plan.tagged {
		out[f.column] = rv.Field(f.index).Interface()
	}
	return out
}
