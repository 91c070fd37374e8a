// Package transcode converts UBJSON values to and from other
// self-describing formats: JSON, JSONC, YAML, CBOR and MessagePack.
//
// Numbers follow one rule in every direction: integers take the
// narrowest UBJSON kind that holds them (int8, uint8, int16, int32,
// int64), integers beyond int64 travel as high-precision text, and
// everything else becomes float64.
package transcode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"math/big"
	"reflect"
	"slices"
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"github.com/tidwall/jsonc"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/NublyBR/go-ubjson"
)

// Format names a foreign data format.
type Format string

const (
	JSON    Format = "json"
	JSONC   Format = "jsonc"
	YAML    Format = "yaml"
	CBOR    Format = "cbor"
	MsgPack Format = "msgpack"
)

// Formats lists every supported format.
var Formats = []Format{JSON, JSONC, YAML, CBOR, MsgPack}

// ParseFormat returns the format called name.
func ParseFormat(name string) (Format, error) {
	f := Format(name)
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("unknown format: %q", name)
	}
	return f, nil
}

// Options tune a conversion. The zero value is ready to use.
type Options struct {
	// Keep non-integral numbers that float64 cannot hold exactly as
	// high-precision text instead of rounding them. Applies to the
	// text formats.
	Precise bool

	// Maximum nesting depth accepted from the foreign document. Zero
	// selects ubjson.DefaultMaxDepth.
	MaxDepth int

	// Indentation used when writing JSON. Empty writes compact output.
	Indent string
}

var ErrTrailingData = errors.New("transcode: trailing data after document")

// Core deterministic encoding so equal values produce equal bytes.
var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	var err error

	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("transcode: CBOR encoder initialization failed: " + err.Error())
	}

	cborDecMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("transcode: CBOR decoder initialization failed: " + err.Error())
	}
}

// Read parses one document of format f into a Value.
func Read(data []byte, f Format, opts Options) (ubjson.Value, error) {
	c := newConverter(opts)

	switch f {
	case JSON:
		return c.readJSON(data)
	case JSONC:
		return c.readJSON(jsonc.ToJSON(data))
	case YAML:
		return c.readYAML(data)
	case CBOR:
		var host any
		if err := cborDecMode.Unmarshal(data, &host); err != nil {
			return ubjson.Value{}, fmt.Errorf("parsing cbor: %w", err)
		}
		return c.fromHost(host)
	case MsgPack:
		return c.readMsgPack(data)
	default:
		return ubjson.Value{}, fmt.Errorf("unknown format: %q", f)
	}
}

// Write renders v in format f.
func Write(v ubjson.Value, f Format, opts Options) ([]byte, error) {
	host, err := toHost(v, f)
	if err != nil {
		return nil, err
	}

	switch f {
	case JSON, JSONC:
		var buf bytes.Buffer

		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", opts.Indent)

		if err := enc.Encode(host); err != nil {
			return nil, fmt.Errorf("writing json: %w", err)
		}
		return buf.Bytes(), nil
	case YAML:
		return writeYAML(host)
	case CBOR:
		out, err := cborEncMode.Marshal(host)
		if err != nil {
			return nil, fmt.Errorf("writing cbor: %w", err)
		}
		return out, nil
	case MsgPack:
		var buf bytes.Buffer

		enc := msgpack.NewEncoder(&buf)
		enc.SetSortMapKeys(true)

		if err := enc.Encode(host); err != nil {
			return nil, fmt.Errorf("writing msgpack: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown format: %q", f)
	}
}

type converter struct {
	precise  bool
	maxDepth int
	depth    int
}

func newConverter(opts Options) *converter {
	c := &converter{precise: opts.Precise, maxDepth: opts.MaxDepth}
	if c.maxDepth <= 0 {
		c.maxDepth = ubjson.DefaultMaxDepth
	}
	return c
}

func (c *converter) enter() error {
	c.depth++
	if c.depth > c.maxDepth {
		return &ubjson.ErrDepthLimitExceeded{Limit: c.maxDepth}
	}
	return nil
}

func (c *converter) leave() { c.depth-- }

func (c *converter) readJSON(data []byte) (ubjson.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var host any
	if err := dec.Decode(&host); err != nil {
		return ubjson.Value{}, fmt.Errorf("parsing json: %w", err)
	}

	if _, err := dec.Token(); err != io.EOF {
		return ubjson.Value{}, ErrTrailingData
	}

	return c.fromHost(host)
}

func (c *converter) readMsgPack(data []byte) (ubjson.Value, error) {
	r := bytes.NewReader(data)
	dec := msgpack.NewDecoder(r)

	host, err := dec.DecodeInterface()
	if err != nil {
		return ubjson.Value{}, fmt.Errorf("parsing msgpack: %w", err)
	}

	if r.Len() > 0 {
		return ubjson.Value{}, ErrTrailingData
	}

	return c.fromHost(host)
}

// fromHost converts the generic trees produced by the foreign decoders.
func (c *converter) fromHost(host any) (ubjson.Value, error) {
	switch v := host.(type) {
	case nil:
		return ubjson.Null(), nil
	case bool:
		return ubjson.Bool(v), nil
	case string:
		return ubjson.String(v), nil
	case json.Number:
		return c.fromNumberText(string(v))
	case int:
		return Integer(int64(v)), nil
	case int8:
		return Integer(int64(v)), nil
	case int16:
		return Integer(int64(v)), nil
	case int32:
		return Integer(int64(v)), nil
	case int64:
		return Integer(v), nil
	case uint:
		return Unsigned(uint64(v)), nil
	case uint8:
		return Unsigned(uint64(v)), nil
	case uint16:
		return Unsigned(uint64(v)), nil
	case uint32:
		return Unsigned(uint64(v)), nil
	case uint64:
		return Unsigned(v), nil
	case big.Int:
		return BigInteger(&v), nil
	case *big.Int:
		return BigInteger(v), nil
	case float32:
		return ubjson.Float32(v), nil
	case float64:
		return ubjson.Float64(v), nil
	case []byte:
		elems := make([]ubjson.Value, len(v))
		for i, b := range v {
			elems[i] = ubjson.UInt8(b)
		}
		return ubjson.TypedArray(ubjson.MarkerUInt8, elems), nil
	case []any:
		if err := c.enter(); err != nil {
			return ubjson.Value{}, err
		}
		defer c.leave()

		elems := make([]ubjson.Value, len(v))
		for i, item := range v {
			elem, err := c.fromHost(item)
			if err != nil {
				return ubjson.Value{}, err
			}
			elems[i] = elem
		}
		return ubjson.Array(elems...), nil
	case map[string]any:
		if err := c.enter(); err != nil {
			return ubjson.Value{}, err
		}
		defer c.leave()

		pairs := make(map[string]ubjson.Value, len(v))
		for key, item := range v {
			val, err := c.fromHost(item)
			if err != nil {
				return ubjson.Value{}, err
			}
			pairs[key] = val
		}
		return ubjson.Object(pairs), nil
	case map[any]any:
		strs := make(map[string]any, len(v))
		for key, item := range v {
			s, ok := key.(string)
			if !ok {
				return ubjson.Value{}, fmt.Errorf("object key %v: keys must be strings, found %T", key, key)
			}
			strs[s] = item
		}
		return c.fromHost(strs)
	}

	return ubjson.Value{}, fmt.Errorf("unsupported value of type %T", host)
}

// fromNumberText handles JSON number literals.
func (c *converter) fromNumberText(text string) (ubjson.Value, error) {
	if isIntegerText(text) {
		n, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return ubjson.Value{}, fmt.Errorf("invalid number %q", text)
		}
		return BigInteger(n), nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		if c.precise {
			return ubjson.HighPrecision(text), nil
		}
		return ubjson.Value{}, fmt.Errorf("number %s: %w", text, err)
	}

	if c.precise && !exactFloat(text) {
		return ubjson.HighPrecision(text), nil
	}

	return ubjson.Float64(f), nil
}

func isIntegerText(text string) bool {
	if text == "" {
		return false
	}
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch == '-' && i == 0 {
			continue
		}
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

// exactFloat reports whether the decimal text rounds to a float64
// without loss.
func exactFloat(text string) bool {
	const prec = 512

	f, _, err := big.ParseFloat(text, 10, prec, big.ToNearestEven)
	if err != nil {
		return false
	}

	_, acc := f.Float64()
	return acc == big.Exact
}

// Integer returns the narrowest integer Value holding n.
func Integer(n int64) ubjson.Value {
	switch {
	case n >= math.MinInt8 && n <= math.MaxInt8:
		return ubjson.Int8(int8(n))
	case n >= 0 && n <= math.MaxUint8:
		return ubjson.UInt8(uint8(n))
	case n >= math.MinInt16 && n <= math.MaxInt16:
		return ubjson.Int16(int16(n))
	case n >= math.MinInt32 && n <= math.MaxInt32:
		return ubjson.Int32(int32(n))
	}
	return ubjson.Int64(n)
}

// Unsigned is Integer for unsigned input. Values above math.MaxInt64
// become high-precision text.
func Unsigned(n uint64) ubjson.Value {
	if n > math.MaxInt64 {
		return ubjson.HighPrecision(strconv.FormatUint(n, 10))
	}
	return Integer(int64(n))
}

// BigInteger is Integer for arbitrary precision input.
func BigInteger(n *big.Int) ubjson.Value {
	if n.IsInt64() {
		return Integer(n.Int64())
	}
	return ubjson.HighPrecision(n.String())
}

// toHost reverses fromHost. Byte arrays become binary strings in the
// formats that have them.
func toHost(v ubjson.Value, f Format) (any, error) {
	binary := f == CBOR || f == MsgPack

	switch v.Kind() {
	case ubjson.KindNull:
		return nil, nil
	case ubjson.KindBool:
		b, _ := v.AsBool()
		return b, nil
	case ubjson.KindInt8, ubjson.KindUInt8, ubjson.KindInt16, ubjson.KindInt32, ubjson.KindInt64:
		n, _ := v.AsInt64()
		return n, nil
	case ubjson.KindFloat32:
		if binary {
			return v.Interface(), nil
		}
		fallthrough
	case ubjson.KindFloat64:
		x, _ := v.AsFloat64()
		if f == JSON || f == JSONC {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, fmt.Errorf("json cannot represent %v", x)
			}
		}
		return x, nil
	case ubjson.KindHighPrecision:
		text, _ := v.AsHighPrecision()
		if f == JSON || f == JSONC {
			return json.Number(text), nil
		}
		return text, nil
	case ubjson.KindChar:
		r, _ := v.AsChar()
		return string(r), nil
	case ubjson.KindString:
		s, _ := v.AsString()
		return s, nil
	case ubjson.KindArray, ubjson.KindTypedArray:
		elems := v.Elements()

		if m, ok := v.ElementMarker(); ok && m == ubjson.MarkerUInt8 && binary {
			out := make([]byte, len(elems))
			for i, elem := range elems {
				n, _ := elem.AsInt64()
				out[i] = byte(n)
			}
			return out, nil
		}

		out := make([]any, len(elems))
		for i, elem := range elems {
			item, err := toHost(elem, f)
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case ubjson.KindObject, ubjson.KindTypedObject:
		pairs := v.Pairs()

		out := make(map[string]any, len(pairs))
		for _, key := range slices.Sorted(maps.Keys(pairs)) {
			item, err := toHost(pairs[key], f)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", key, err)
			}
			out[key] = item
		}
		return out, nil
	}

	return nil, fmt.Errorf("cannot convert %s value", v.Kind())
}
