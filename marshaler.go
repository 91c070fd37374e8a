package ubjson

import "bytes"

// Encode serializes v into a new byte slice.
func Encode(v Value, options ...Options) ([]byte, error) {
	var buf = bytes.NewBuffer(nil)

	err := NewEncoder(buf, options...).Encode(v)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses exactly one value from b. Bytes left after the value are an
// error, except for trailing no-op padding.
func Decode(b []byte, options ...Options) (Value, error) {
	var reader = bytes.NewReader(b)

	v, err := NewDecoder(reader, options...).Decode()
	if err != nil {
		return Value{}, err
	}

	for reader.Len() > 0 {
		next, _ := reader.ReadByte()
		if Marker(next) != MarkerNoOp {
			return Value{}, invalidFormat("unexpected trailing data at offset %d", len(b)-reader.Len()-1)
		}
	}

	return v, nil
}

// Marshal converts data with FromGo and encodes the result.
func Marshal(data any, options ...Options) ([]byte, error) {
	v, err := FromGo(data, options...)
	if err != nil {
		return nil, err
	}

	return Encode(v, options...)
}

// Unmarshal decodes b and stores the result in the value pointed to by data.
func Unmarshal(b []byte, data any, options ...Options) error {
	v, err := Decode(b, options...)
	if err != nil {
		return err
	}

	return Into(v, data, options...)
}
