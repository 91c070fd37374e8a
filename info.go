package ubjson

import (
	"strconv"
	"strings"
)

type fieldInfo struct {
	// Object key, defaults to the Go field name
	name string

	// Ignore this field
	ignore bool

	// Leave the key out when the field holds its zero value
	omitEmpty bool

	// Maximum size of the data, works differently based on type
	//
	// string: max encoded bytes
	// slice/array/map: max elements
	maxSize uint64
}

// parseFieldInfo reads a `ubjson:"name:id;omitempty;max:64"` struct tag.
func parseFieldInfo(field string, tag string) fieldInfo {
	var info = fieldInfo{name: field}

	if tag == "" {
		return info
	}

	if tag == "-" {
		info.ignore = true
		return info
	}

	for _, part := range strings.Split(tag, ";") {
		key, val, _ := strings.Cut(strings.TrimSpace(part), ":")

		switch key {
		case "name":
			if val != "" {
				info.name = val
			}

		case "ignore":
			info.ignore = true

		case "omitempty":
			info.omitEmpty = true

		case "max":
			info.maxSize, _ = strconv.ParseUint(val, 10, 64)
		}
	}

	return info
}

// exceeds reports whether a string or container of size n breaks the max
// constraint of the field.
func (f fieldInfo) exceeds(n int) bool {
	return f.maxSize > 0 && uint64(n) > f.maxSize
}
