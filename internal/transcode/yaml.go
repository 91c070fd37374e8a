package transcode

import (
	"fmt"
	"math/big"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/NublyBR/go-ubjson"
)

func (c *converter) readYAML(data []byte) (ubjson.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ubjson.Value{}, fmt.Errorf("parsing yaml: %w", err)
	}

	// An empty stream has no document node.
	if doc.Kind == 0 {
		return ubjson.Null(), nil
	}

	return c.fromNode(&doc)
}

// fromNode walks the node tree so that scalars keep their source text
// until their tag is known.
func (c *converter) fromNode(node *yaml.Node) (ubjson.Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return ubjson.Null(), nil
		}
		return c.fromNode(node.Content[0])

	case yaml.AliasNode:
		if err := c.enter(); err != nil {
			return ubjson.Value{}, err
		}
		defer c.leave()

		return c.fromNode(node.Alias)

	case yaml.SequenceNode:
		if err := c.enter(); err != nil {
			return ubjson.Value{}, err
		}
		defer c.leave()

		elems := make([]ubjson.Value, len(node.Content))
		for i, child := range node.Content {
			elem, err := c.fromNode(child)
			if err != nil {
				return ubjson.Value{}, err
			}
			elems[i] = elem
		}
		return ubjson.Array(elems...), nil

	case yaml.MappingNode:
		if err := c.enter(); err != nil {
			return ubjson.Value{}, err
		}
		defer c.leave()

		pairs := make(map[string]ubjson.Value, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if key.Kind != yaml.ScalarNode {
				return ubjson.Value{}, fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
			}

			val, err := c.fromNode(node.Content[i+1])
			if err != nil {
				return ubjson.Value{}, fmt.Errorf("%s: %w", key.Value, err)
			}
			pairs[key.Value] = val
		}
		return ubjson.Object(pairs), nil

	case yaml.ScalarNode:
		return c.fromScalar(node)
	}

	return ubjson.Value{}, fmt.Errorf("line %d: unsupported yaml node", node.Line)
}

func (c *converter) fromScalar(node *yaml.Node) (ubjson.Value, error) {
	switch node.ShortTag() {
	case "!!str", "!!timestamp":
		return ubjson.String(node.Value), nil

	case "!!int":
		text := strings.ReplaceAll(node.Value, "_", "")
		if n, ok := new(big.Int).SetString(text, 0); ok {
			return BigInteger(n), nil
		}

	case "!!float":
		// Integers past uint64 resolve as floats.
		if isIntegerText(node.Value) {
			n, _ := new(big.Int).SetString(node.Value, 10)
			return BigInteger(n), nil
		}
		if c.precise && isDecimal(node.Value) && !exactFloat(node.Value) {
			return ubjson.HighPrecision(node.Value), nil
		}
	}

	var host any
	if err := node.Decode(&host); err != nil {
		return ubjson.Value{}, fmt.Errorf("line %d: %w", node.Line, err)
	}

	return c.fromHost(host)
}

// isDecimal excludes the special float spellings such as .inf and .nan.
func isDecimal(text string) bool {
	return text != "" && !strings.ContainsAny(text, "nN")
}

func writeYAML(host any) ([]byte, error) {
	out, err := yaml.Marshal(host)
	if err != nil {
		return nil, fmt.Errorf("writing yaml: %w", err)
	}
	return out, nil
}
