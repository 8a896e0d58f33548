package frontmatter

import (
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tags accepted for recognized string fields.
var stringScalarTags = []string{"!!str", "!!int", "!!float", "!!bool", "!!timestamp", "!!null"}

func decodeMetadata(meta string) (Frontmatter, error) {
	fm := Frontmatter{
		Tags:       []string{},
		Categories: []string{},
		Custom:     NewFields(),
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(meta), &doc); err != nil {
		return Frontmatter{}, invalidMetadata("%v", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return fm, nil
	}

	root := resolveAlias(doc.Content[0])
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return fm, nil
	}
	if root.Kind != yaml.MappingNode {
		return Frontmatter{}, invalidMetadata("expected a mapping at line %d", root.Line)
	}

	seen := make(map[string]bool, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := resolveAlias(root.Content[i]), resolveAlias(root.Content[i+1])
		if keyNode.Kind != yaml.ScalarNode {
			return Frontmatter{}, invalidMetadata("non-scalar key at line %d", keyNode.Line)
		}
		key := keyNode.Value
		if seen[key] {
			return Frontmatter{}, invalidMetadata("duplicate key %q at line %d", key, keyNode.Line)
		}
		seen[key] = true

		var err error
		switch key {
		case KeyTitle:
			fm.Title, err = stringField(key, valueNode)
		case KeyDate:
			fm.Date, err = stringField(key, valueNode)
		case KeyTags:
			fm.Tags, err = stringList(key, valueNode)
		case KeyCategories:
			fm.Categories, err = stringList(key, valueNode)
		case KeyPermalink:
			fm.Permalink, err = optionalField(key, valueNode)
		case KeyListImage:
			fm.ListImage, err = optionalField(key, valueNode)
		case KeyListImageAlt:
			fm.ListImageAlt, err = optionalField(key, valueNode)
		case KeyMainImage:
			fm.MainImage, err = optionalField(key, valueNode)
		case KeyMainImageAlt:
			fm.MainImageAlt, err = optionalField(key, valueNode)
		default:
			var v any
			v, err = valueFromNode(valueNode)
			if err == nil {
				fm.Custom.Set(key, v)
			}
		}
		if err != nil {
			return Frontmatter{}, err
		}
	}

	return fm, nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func stringField(key string, n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", invalidMetadata("%s must be a scalar (line %d)", key, n.Line)
	}
	tag := n.ShortTag()
	if !isStringScalarTag(tag) {
		return "", invalidMetadata("%s has unsupported type %s (line %d)", key, tag, n.Line)
	}
	if tag == "!!null" {
		return "", nil
	}
	return n.Value, nil
}

func optionalField(key string, n *yaml.Node) (*string, error) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		return nil, nil
	}
	s, err := stringField(key, n)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// stringList accepts a sequence of scalars, a single scalar, or null.
func stringList(key string, n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return []string{}, nil
		}
		s, err := stringField(key, n)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.ScalarNode {
				return nil, invalidMetadata("%s entries must be scalars (line %d)", key, item.Line)
			}
			s, err := stringField(key, item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, invalidMetadata("%s must be a list (line %d)", key, n.Line)
	}
}

func isStringScalarTag(tag string) bool {
	return slices.Contains(stringScalarTags, tag)
}

// valueFromNode converts a custom field value, keeping mapping order.
func valueFromNode(n *yaml.Node) (any, error) {
	n = resolveAlias(n)
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() == "!!timestamp" {
			return Timestamp(n.Value), nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, invalidMetadata("line %d: %v", n.Line, err)
		}
		return v, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := valueFromNode(item)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case yaml.MappingNode:
		fields := NewFields()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode := resolveAlias(n.Content[i])
			if keyNode.Kind != yaml.ScalarNode {
				return nil, invalidMetadata("non-scalar key at line %d", keyNode.Line)
			}
			if _, dup := fields.Get(keyNode.Value); dup {
				return nil, invalidMetadata("duplicate key %q at line %d", keyNode.Value, keyNode.Line)
			}
			v, err := valueFromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			fields.Set(keyNode.Value, v)
		}
		return fields, nil
	default:
		return nil, invalidMetadata("unsupported node at line %d", n.Line)
	}
}

func metadataNode(fm Frontmatter) (*yaml.Node, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value *yaml.Node) {
		root.Content = append(root.Content, strNode(key), value)
	}

	add(KeyTitle, strNode(fm.Title))
	// An undated document stays undated; Hexo uses the file time.
	if fm.Date != "" {
		add(KeyDate, dateNode(fm.Date))
	}
	add(KeyTags, strSeqNode(fm.Tags))
	add(KeyCategories, strSeqNode(fm.Categories))

	optional := []struct {
		key   string
		value *string
	}{
		{KeyPermalink, fm.Permalink},
		{KeyListImage, fm.ListImage},
		{KeyListImageAlt, fm.ListImageAlt},
		{KeyMainImage, fm.MainImage},
		{KeyMainImageAlt, fm.MainImageAlt},
	}
	for _, o := range optional {
		if o.value != nil {
			add(o.key, strNode(*o.value))
		}
	}

	for key, value := range fm.Custom.All() {
		if IsKnownKey(key) {
			return nil, invalidMetadata("custom field %q shadows a recognized field", key)
		}
		node, err := nodeFromValue(value)
		if err != nil {
			return nil, err
		}
		add(key, node)
	}

	return root, nil
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// dateNode leaves the tag implicit so plain dates are written unquoted;
// the decoder reads recognized fields by their literal text.
func dateNode(s string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: s}
	if s == "" || n.ShortTag() == "!!null" {
		return strNode(s)
	}
	return n
}

func strSeqNode(items []string) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, item := range items {
		seq.Content = append(seq.Content, strNode(item))
	}
	return seq
}

func nodeFromValue(v any) (*yaml.Node, error) {
	switch vv := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case string:
		return strNode(vv), nil
	case Timestamp:
		return dateNode(string(vv)), nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(vv)}, nil
	case int:
		return intNode(strconv.Itoa(vv)), nil
	case int8:
		return intNode(strconv.FormatInt(int64(vv), 10)), nil
	case int16:
		return intNode(strconv.FormatInt(int64(vv), 10)), nil
	case int32:
		return intNode(strconv.FormatInt(int64(vv), 10)), nil
	case int64:
		return intNode(strconv.FormatInt(vv, 10)), nil
	case uint:
		return intNode(strconv.FormatUint(uint64(vv), 10)), nil
	case uint8:
		return intNode(strconv.FormatUint(uint64(vv), 10)), nil
	case uint16:
		return intNode(strconv.FormatUint(uint64(vv), 10)), nil
	case uint32:
		return intNode(strconv.FormatUint(uint64(vv), 10)), nil
	case uint64:
		return intNode(strconv.FormatUint(vv, 10)), nil
	case float32:
		return floatNode(float64(vv)), nil
	case float64:
		return floatNode(vv), nil
	case []string:
		return strSeqNode(vv), nil
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range vv {
			node, err := nodeFromValue(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, node)
		}
		return seq, nil
	case *Fields:
		m := &yaml.Node{Kind: yaml.MappingNode}
		for key, value := range vv.All() {
			node, err := nodeFromValue(value)
			if err != nil {
				return nil, err
			}
			m.Content = append(m.Content, strNode(key), node)
		}
		return m, nil
	case map[string]any:
		return nodeFromValue(FieldsFromMap(vv))
	default:
		return fallbackNode(v)
	}
}

func intNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: s}
}

// floatNode always writes a decimal point or exponent so integral floats
// decode back as floats.
func floatNode(f float64) *yaml.Node {
	var s string
	switch {
	case math.IsInf(f, 1):
		s = ".inf"
	case math.IsInf(f, -1):
		s = "-.inf"
	case math.IsNaN(f):
		s = ".nan"
	default:
		s = strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: s}
}

func fallbackNode(v any) (node *yaml.Node, err error) {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return nil, invalidMetadata("cannot encode value of type %T", v)
	}

	defer func() {
		if r := recover(); r != nil {
			node, err = nil, invalidMetadata("cannot encode value of type %T: %v", v, r)
		}
	}()

	node = &yaml.Node{}
	if err := node.Encode(v); err != nil {
		return nil, invalidMetadata("cannot encode value of type %T: %v", v, err)
	}
	return node, nil
}
