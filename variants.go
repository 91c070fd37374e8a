package ubjson

import (
	"maps"
	"reflect"
	"slices"
)

// Variants maps names to Go types so that values stored in interface typed
// fields survive a round trip. A registered value is represented as a
// single-entry Object {name: payload}.
//
// A Variants registry is not safe for concurrent registration; register all
// types before sharing it.
type Variants struct {
	nameToType map[string]reflect.Type
	typeToName map[reflect.Type]string
}

// NewVariants registers each item under its Go type name.
func NewVariants(items ...any) *Variants {
	return (&Variants{
		nameToType: make(map[string]reflect.Type, len(items)),
		typeToName: make(map[reflect.Type]string, len(items)),
	}).Push(items...)
}

// Push registers each item under its Go type name.
func (v *Variants) Push(items ...any) *Variants {
	for _, item := range items {
		typ := baseType(reflect.TypeOf(item))
		v.Register(typ.Name(), item)
	}

	return v
}

// Register adds item's type under name, replacing any previous binding of
// either the name or the type.
func (v *Variants) Register(name string, item any) *Variants {
	typ := baseType(reflect.TypeOf(item))

	// The zero Variants is ready to use.
	if v.nameToType == nil {
		v.nameToType = make(map[string]reflect.Type)
		v.typeToName = make(map[reflect.Type]string)
	}

	if old, ok := v.nameToType[name]; ok {
		delete(v.typeToName, old)
	}
	if old, ok := v.typeToName[typ]; ok {
		delete(v.nameToType, old)
	}

	v.nameToType[name] = typ
	v.typeToName[typ] = name

	return v
}

// Name returns the variant name of item's type, pointers dereferenced.
func (v *Variants) Name(item any) (string, bool) {
	if v == nil || item == nil {
		return "", false
	}

	return v.nameOf(reflect.TypeOf(item))
}

func (v *Variants) nameOf(typ reflect.Type) (string, bool) {
	if v == nil {
		return "", false
	}

	name, ok := v.typeToName[baseType(typ)]

	return name, ok
}

// Type returns the Go type registered under name.
func (v *Variants) Type(name string) (reflect.Type, bool) {
	if v == nil {
		return nil, false
	}

	typ, ok := v.nameToType[name]

	return typ, ok
}

// Names lists the registered variant names in sorted order.
func (v *Variants) Names() []string {
	if v == nil {
		return nil
	}

	return slices.Sorted(maps.Keys(v.nameToType))
}

func baseType(typ reflect.Type) reflect.Type {
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return typ
}
