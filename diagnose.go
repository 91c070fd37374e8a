package ubjson

import (
	"strconv"
	"strings"
)

// Diagnose renders v in a compact human-readable notation.
//
// Scalars in tagged position carry their wire kind as a prefix (U:10,
// d:1.5, H:"3.14"); strings are quoted and null/true/false are spelled out.
// Optimized containers show their header followed by bare payloads, so a
// counted typed array of four bytes reads [$U#4 10 20 30 40].
func Diagnose(v Value) string {
	var sb strings.Builder

	diagnose(&sb, v, true)

	return sb.String()
}

// DiagnoseBytes decodes b and renders the result with Diagnose.
func DiagnoseBytes(b []byte, options ...Options) (string, error) {
	v, err := Decode(b, options...)
	if err != nil {
		return "", err
	}

	return Diagnose(v), nil
}

func diagnose(sb *strings.Builder, v Value, tagged bool) {
	switch v.kind {
	case KindInvalid:
		sb.WriteString("<invalid>")

	case KindNull:
		sb.WriteString("null")

	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))

	case KindInt8, KindUInt8, KindInt16, KindInt32, KindInt64:
		writeKindPrefix(sb, v, tagged)
		sb.WriteString(strconv.FormatInt(v.i, 10))

	case KindFloat32:
		writeKindPrefix(sb, v, tagged)
		sb.WriteString(strconv.FormatFloat(v.f, 'g', -1, 32))

	case KindFloat64:
		writeKindPrefix(sb, v, tagged)
		sb.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))

	case KindHighPrecision:
		writeKindPrefix(sb, v, tagged)
		sb.WriteString(strconv.Quote(v.s))

	case KindChar:
		writeKindPrefix(sb, v, tagged)
		sb.WriteString(strconv.QuoteRune(v.r))

	case KindString:
		sb.WriteString(strconv.Quote(v.s))

	case KindArray:
		sb.WriteByte('[')
		for i, elem := range v.elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			diagnose(sb, elem, true)
		}
		sb.WriteByte(']')

	case KindObject:
		sb.WriteByte('{')
		for i, key := range v.Keys() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(key))
			sb.WriteString(": ")
			diagnose(sb, v.pairs[key], true)
		}
		sb.WriteByte('}')

	case KindTypedArray:
		sb.WriteByte('[')
		writeTypedHeader(sb, v)
		for _, elem := range v.elems {
			sb.WriteByte(' ')
			diagnose(sb, elem, false)
		}
		sb.WriteByte(']')

	case KindTypedObject:
		sb.WriteByte('{')
		writeTypedHeader(sb, v)
		for i, key := range v.Keys() {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteByte(' ')
			sb.WriteString(strconv.Quote(key))
			sb.WriteString(": ")
			diagnose(sb, v.pairs[key], false)
		}
		sb.WriteByte('}')
	}
}

func writeKindPrefix(sb *strings.Builder, v Value, tagged bool) {
	if !tagged {
		return
	}
	sb.WriteByte(byte(v.Marker()))
	sb.WriteByte(':')
}

func writeTypedHeader(sb *strings.Builder, v Value) {
	sb.WriteByte(byte(MarkerType))
	sb.WriteByte(byte(v.elemMarker))

	if v.counted {
		sb.WriteByte(byte(MarkerCount))
		sb.WriteString(strconv.Itoa(v.count))
	}
}
