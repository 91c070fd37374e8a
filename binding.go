package ubjson

import (
	"math"
	"reflect"
	"strconv"
)

// Number is a numeric literal of arbitrary precision. It is converted to and
// from HighPrecision values.
type Number string

var (
	typeNumber = reflect.TypeOf(Number(""))
	typeValue  = reflect.TypeOf(Value{})
)

// binder walks Go values with reflection. Pointers and containers count
// towards the depth limit, which also stops cyclic data structures.
type binder struct {
	variants *Variants
	maxDepth int
	depth    int
}

func newBinder(options []Options) *binder {
	s := collectSettings(options)

	return &binder{variants: s.variants, maxDepth: s.maxDepth}
}

func (b *binder) enter() error {
	if b.depth >= b.maxDepth {
		return &ErrDepthLimitExceeded{Limit: b.maxDepth}
	}

	b.depth++

	return nil
}

func (b *binder) leave() {
	b.depth--
}

// FromGo converts a Go value into a Value.
//
// Integers keep their width where a matching kind exists; uint16 widens to
// Int32 and wider unsigned integers to Int64, or to HighPrecision text when
// they do not fit. Byte slices become typed arrays of UInt8. Structs become
// objects keyed by field name or by the `ubjson:"name:..."` tag; nil
// pointers, slices and maps become Null.
func FromGo(data any, options ...Options) (Value, error) {
	if data == nil {
		return Null(), nil
	}

	return newBinder(options).fromGo(reflect.ValueOf(data), fieldInfo{})
}

func (b *binder) fromGo(val reflect.Value, info fieldInfo) (Value, error) {
	if !val.IsValid() {
		return Null(), nil
	}

	var typ = val.Type()

	if typ == typeValue {
		return val.Interface().(Value), nil
	}

	if typ.Kind() != reflect.Interface && typ.Implements(interfaceValueMarshaler) {
		if typ.Kind() == reflect.Pointer && val.IsNil() {
			return Null(), nil
		}
		return val.Interface().(ValueMarshaler).MarshalUBJSON()
	}

	if val.CanAddr() && reflect.PointerTo(typ).Implements(interfaceValueMarshaler) {
		return val.Addr().Interface().(ValueMarshaler).MarshalUBJSON()
	}

	if typ == typeNumber {
		return HighPrecision(val.String()), nil
	}

	switch typ.Kind() {
	case reflect.Pointer:
		if val.IsNil() {
			return Null(), nil
		}

		if err := b.enter(); err != nil {
			return Value{}, err
		}
		defer b.leave()

		return b.fromGo(val.Elem(), info)

	case reflect.Interface:
		if val.IsNil() {
			return Null(), nil
		}

		return b.fromInterface(val, info)

	case reflect.Bool:
		return Bool(val.Bool()), nil

	case reflect.Int8:
		return Int8(int8(val.Int())), nil

	case reflect.Int16:
		return Int16(int16(val.Int())), nil

	case reflect.Int32:
		return Int32(int32(val.Int())), nil

	case reflect.Int, reflect.Int64:
		return Int64(val.Int()), nil

	case reflect.Uint8:
		return UInt8(uint8(val.Uint())), nil

	case reflect.Uint16:
		return Int32(int32(val.Uint())), nil

	case reflect.Uint, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n := val.Uint()
		if n <= math.MaxInt64 {
			return Int64(int64(n)), nil
		}
		return HighPrecision(strconv.FormatUint(n, 10)), nil

	case reflect.Float32:
		return Float32(float32(val.Float())), nil

	case reflect.Float64:
		return Float64(val.Float()), nil

	case reflect.String:
		s := val.String()
		if info.exceeds(len(s)) {
			return Value{}, &ErrDataTooLarge{Max: info.maxSize, Size: uint64(len(s))}
		}
		return String(s), nil

	case reflect.Slice:
		if val.IsNil() {
			return Null(), nil
		}
		return b.fromSequence(val, info)

	case reflect.Array:
		return b.fromSequence(val, info)

	case reflect.Map:
		if val.IsNil() {
			return Null(), nil
		}
		return b.fromMap(val, info)

	case reflect.Struct:
		return b.fromStruct(val)
	}

	return Value{}, &ErrInvalidType{typ}
}

// fromInterface wraps registered variants as {name: payload}.
func (b *binder) fromInterface(val reflect.Value, info fieldInfo) (Value, error) {
	var elem = val.Elem()

	if elem.Kind() == reflect.Pointer && elem.IsNil() {
		return Null(), nil
	}

	name, ok := b.variants.nameOf(elem.Type())
	if !ok {
		if val.NumMethod() > 0 && b.variants != nil {
			return Value{}, &ErrNotDefined{typ: elem.Type()}
		}
		return b.fromGo(elem, info)
	}

	payload, err := b.fromGo(elem, info)
	if err != nil {
		return Value{}, err
	}

	return Object(map[string]Value{name: payload}), nil
}

func (b *binder) fromSequence(val reflect.Value, info fieldInfo) (Value, error) {
	var (
		ln      = val.Len()
		elemTyp = val.Type().Elem()
	)

	if info.exceeds(ln) {
		return Value{}, &ErrDataTooLarge{Max: info.maxSize, Size: uint64(ln)}
	}

	if err := b.enter(); err != nil {
		return Value{}, err
	}
	defer b.leave()

	elems := make([]Value, ln)

	if elemTyp.Kind() == reflect.Uint8 && !elemTyp.Implements(interfaceValueMarshaler) {
		for i := range ln {
			elems[i] = UInt8(uint8(val.Index(i).Uint()))
		}
		return TypedArray(MarkerUInt8, elems), nil
	}

	for i := range ln {
		elem, err := b.fromGo(val.Index(i), fieldInfo{})
		if err != nil {
			return Value{}, err
		}
		elems[i] = elem
	}

	return Array(elems...), nil
}

func (b *binder) fromMap(val reflect.Value, info fieldInfo) (Value, error) {
	var typ = val.Type()

	if typ.Key().Kind() != reflect.String {
		return Value{}, &ErrInvalidTypeKey{typ}
	}

	if info.exceeds(val.Len()) {
		return Value{}, &ErrDataTooLarge{Max: info.maxSize, Size: uint64(val.Len())}
	}

	if err := b.enter(); err != nil {
		return Value{}, err
	}
	defer b.leave()

	var (
		pairs = make(map[string]Value, val.Len())
		iter  = val.MapRange()
	)

	for iter.Next() {
		item, err := b.fromGo(iter.Value(), fieldInfo{})
		if err != nil {
			return Value{}, err
		}

		pairs[iter.Key().String()] = item
	}

	return Object(pairs), nil
}

func (b *binder) fromStruct(val reflect.Value) (Value, error) {
	if err := callBeforeEncode(val); err != nil {
		return Value{}, err
	}

	if err := b.enter(); err != nil {
		return Value{}, err
	}
	defer b.leave()

	var (
		typ   = val.Type()
		pairs = make(map[string]Value, typ.NumField())
	)

	for i := range typ.NumField() {
		var field = typ.Field(i)

		if !field.IsExported() {
			continue
		}

		info := parseFieldInfo(field.Name, field.Tag.Get("ubjson"))
		if info.ignore {
			continue
		}

		fieldVal := val.Field(i)
		if info.omitEmpty && fieldVal.IsZero() {
			continue
		}

		item, err := b.fromGo(fieldVal, info)
		if err != nil {
			return Value{}, err
		}

		pairs[info.name] = item
	}

	return Object(pairs), nil
}

func callBeforeEncode(val reflect.Value) error {
	if val.CanAddr() && reflect.PointerTo(val.Type()).Implements(interfaceBeforeEncode) {
		return val.Addr().Interface().(BeforeEncode).BeforeEncode()
	}

	if val.Type().Implements(interfaceBeforeEncode) {
		return val.Interface().(BeforeEncode).BeforeEncode()
	}

	return nil
}

// Into stores v in the value pointed to by data, which must be a non-nil
// pointer. Numbers are range checked against the destination type; a Null
// clears pointers, interfaces, slices and maps.
func Into(v Value, data any, options ...Options) error {
	val := reflect.ValueOf(data)

	if !val.IsValid() || val.Kind() != reflect.Pointer || val.IsNil() {
		return ErrInvalidReceiver
	}

	return newBinder(options).into(v, val.Elem(), fieldInfo{})
}

func (b *binder) into(v Value, val reflect.Value, info fieldInfo) error {
	var typ = val.Type()

	if typ == typeValue {
		val.Set(reflect.ValueOf(v))
		return nil
	}

	if val.CanAddr() && reflect.PointerTo(typ).Implements(interfaceValueUnmarshaler) {
		return val.Addr().Interface().(ValueUnmarshaler).UnmarshalUBJSON(v)
	}

	if typ == typeNumber {
		text, ok := numberText(v)
		if !ok {
			return cannotAssign(v, typ)
		}
		val.SetString(text)
		return nil
	}

	switch typ.Kind() {
	case reflect.Pointer:
		if v.IsNull() {
			val.SetZero()
			return nil
		}

		if err := b.enter(); err != nil {
			return err
		}
		defer b.leave()

		if val.IsNil() {
			val.Set(reflect.New(typ.Elem()))
		}

		return b.into(v, val.Elem(), info)

	case reflect.Interface:
		return b.intoInterface(v, val)

	case reflect.Bool:
		x, ok := v.AsBool()
		if !ok {
			return cannotAssign(v, typ)
		}
		val.SetBool(x)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := intOf(v)
		if !ok || val.OverflowInt(n) {
			return cannotAssign(v, typ)
		}
		val.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, ok := uintOf(v)
		if !ok || val.OverflowUint(n) {
			return cannotAssign(v, typ)
		}
		val.SetUint(n)

	case reflect.Float32, reflect.Float64:
		f, ok := floatOf(v)
		if !ok {
			return cannotAssign(v, typ)
		}
		if typ.Kind() == reflect.Float32 && !math.IsInf(f, 0) && val.OverflowFloat(f) {
			return cannotAssign(v, typ)
		}
		val.SetFloat(f)

	case reflect.String:
		s, ok := v.AsString()
		if r, isChar := v.AsChar(); isChar {
			s, ok = string(r), true
		}
		if !ok {
			return cannotAssign(v, typ)
		}
		if info.exceeds(len(s)) {
			return &ErrDataTooLarge{Max: info.maxSize, Size: uint64(len(s))}
		}
		val.SetString(s)

	case reflect.Slice:
		if v.IsNull() {
			val.SetZero()
			return nil
		}
		return b.intoSlice(v, val, info)

	case reflect.Array:
		return b.intoArray(v, val)

	case reflect.Map:
		if v.IsNull() {
			val.SetZero()
			return nil
		}
		return b.intoMap(v, val, info)

	case reflect.Struct:
		return b.intoStruct(v, val)

	default:
		return &ErrInvalidType{typ}
	}

	return nil
}

// intoInterface resolves {name: payload} objects through the variants
// registry, storing a pointer to the registered type. Anything else is
// stored as the plain Go value returned by Value.Interface.
func (b *binder) intoInterface(v Value, val reflect.Value) error {
	if v.IsNull() {
		val.SetZero()
		return nil
	}

	var typ = val.Type()

	if v.IsObject() && v.Len() == 1 {
		name := v.Keys()[0]

		if variant, ok := b.variants.Type(name); ok {
			payload, _ := v.Get(name)

			item := reflect.New(variant)
			if err := b.into(payload, item.Elem(), fieldInfo{}); err != nil {
				return err
			}

			switch {
			case item.Type().AssignableTo(typ):
				val.Set(item)
			case variant.AssignableTo(typ):
				val.Set(item.Elem())
			default:
				return cannotAssign(v, typ)
			}

			return nil
		}

		if typ.NumMethod() > 0 {
			return &ErrNotDefined{variant: name}
		}
	}

	if typ.NumMethod() > 0 {
		return cannotAssign(v, typ)
	}

	plain := v.Interface()
	if plain == nil {
		val.SetZero()
		return nil
	}

	val.Set(reflect.ValueOf(plain))

	return nil
}

func (b *binder) intoSlice(v Value, val reflect.Value, info fieldInfo) error {
	var typ = val.Type()

	if !v.IsArray() {
		return cannotAssign(v, typ)
	}

	elems := v.Elements()
	if info.exceeds(len(elems)) {
		return &ErrDataTooLarge{Max: info.maxSize, Size: uint64(len(elems))}
	}

	if err := b.enter(); err != nil {
		return err
	}
	defer b.leave()

	out := reflect.MakeSlice(typ, len(elems), len(elems))

	for i, elem := range elems {
		if err := b.into(elem, out.Index(i), fieldInfo{}); err != nil {
			return err
		}
	}

	val.Set(out)

	return nil
}

func (b *binder) intoArray(v Value, val reflect.Value) error {
	var typ = val.Type()

	if !v.IsArray() {
		return cannotAssign(v, typ)
	}

	elems := v.Elements()
	if len(elems) != typ.Len() {
		return &ErrLengthMismatch{Expected: typ.Len(), Actual: len(elems)}
	}

	if err := b.enter(); err != nil {
		return err
	}
	defer b.leave()

	for i, elem := range elems {
		if err := b.into(elem, val.Index(i), fieldInfo{}); err != nil {
			return err
		}
	}

	return nil
}

func (b *binder) intoMap(v Value, val reflect.Value, info fieldInfo) error {
	var typ = val.Type()

	if typ.Key().Kind() != reflect.String {
		return &ErrInvalidTypeKey{typ}
	}

	if !v.IsObject() {
		return cannotAssign(v, typ)
	}

	pairs := v.Pairs()
	if info.exceeds(len(pairs)) {
		return &ErrDataTooLarge{Max: info.maxSize, Size: uint64(len(pairs))}
	}

	if err := b.enter(); err != nil {
		return err
	}
	defer b.leave()

	out := reflect.MakeMapWithSize(typ, len(pairs))

	for key, item := range pairs {
		elem := reflect.New(typ.Elem()).Elem()

		if err := b.into(item, elem, fieldInfo{}); err != nil {
			return err
		}

		out.SetMapIndex(reflect.ValueOf(key).Convert(typ.Key()), elem)
	}

	val.Set(out)

	return nil
}

func (b *binder) intoStruct(v Value, val reflect.Value) error {
	var typ = val.Type()

	if !v.IsObject() {
		return cannotAssign(v, typ)
	}

	if err := b.enter(); err != nil {
		return err
	}
	defer b.leave()

	for i := range typ.NumField() {
		var field = typ.Field(i)

		if !field.IsExported() {
			continue
		}

		info := parseFieldInfo(field.Name, field.Tag.Get("ubjson"))
		if info.ignore {
			continue
		}

		item, ok := v.Get(info.name)
		if !ok {
			continue
		}

		if err := b.into(item, val.Field(i), info); err != nil {
			return err
		}
	}

	return callAfterDecode(val)
}

func callAfterDecode(val reflect.Value) error {
	if val.CanAddr() && reflect.PointerTo(val.Type()).Implements(interfaceAfterDecode) {
		return val.Addr().Interface().(AfterDecode).AfterDecode()
	}

	if val.Type().Implements(interfaceAfterDecode) {
		return val.Interface().(AfterDecode).AfterDecode()
	}

	return nil
}

func cannotAssign(v Value, typ reflect.Type) error {
	return &ErrCannotAssign{kind: v.Kind(), typ: typ}
}

func intOf(v Value) (int64, bool) {
	if n, ok := v.AsInt64(); ok {
		return n, true
	}

	if text, ok := v.AsHighPrecision(); ok {
		n, err := strconv.ParseInt(text, 10, 64)
		return n, err == nil
	}

	return 0, false
}

func uintOf(v Value) (uint64, bool) {
	if n, ok := v.AsInt64(); ok {
		return uint64(n), n >= 0
	}

	if text, ok := v.AsHighPrecision(); ok {
		n, err := strconv.ParseUint(text, 10, 64)
		return n, err == nil
	}

	return 0, false
}

func floatOf(v Value) (float64, bool) {
	if f, ok := v.AsFloat64(); ok {
		return f, true
	}

	if n, ok := v.AsInt64(); ok {
		return float64(n), true
	}

	if text, ok := v.AsHighPrecision(); ok {
		f, err := strconv.ParseFloat(text, 64)
		return f, err == nil
	}

	return 0, false
}

// numberText renders any finite number as HighPrecision text.
func numberText(v Value) (string, bool) {
	if text, ok := v.AsHighPrecision(); ok {
		return text, true
	}

	if n, ok := v.AsInt64(); ok {
		return strconv.FormatInt(n, 10), true
	}

	if f, ok := v.AsFloat64(); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
		bits := 64
		if v.Kind() == KindFloat32 {
			bits = 32
		}
		return strconv.FormatFloat(f, 'g', -1, bits), true
	}

	return "", false
}
