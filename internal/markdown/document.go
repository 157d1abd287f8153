package markdown

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Document is a markdown file with a YAML frontmatter block.
type Document struct {
	Fields Fields
	Body   string
}

// Parse splits data into frontmatter and body. Data without a leading
// frontmatter block is all body.
func Parse(data []byte) (Document, error) {
	text := string(bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n")))

	if !hasLinePrefix(text, delimiter) {
		return Document{Body: text}, nil
	}
	rest := afterLine(text, 0)

	end := indexLine(rest, delimiter)
	if end < 0 {
		return Document{}, fmt.Errorf("unterminated frontmatter")
	}
	matter := rest[:end]
	body := afterLine(rest, end)

	var fields Fields
	if strings.TrimSpace(matter) != "" {
		var root yaml.Node
		if err := yaml.Unmarshal([]byte(matter), &root); err != nil {
			return Document{}, fmt.Errorf("parsing frontmatter: %w", err)
		}
		if len(root.Content) > 0 {
			v, err := fromNode(root.Content[0])
			if err != nil {
				return Document{}, fmt.Errorf("parsing frontmatter: %w", err)
			}
			var ok bool
			if fields, ok = v.(Fields); !ok && v != nil {
				return Document{}, fmt.Errorf("frontmatter is not a mapping")
			}
		}
	}

	return Document{Fields: fields, Body: body}, nil
}

// hasLinePrefix reports whether text starts with line followed by a newline
// or the end of text.
func hasLinePrefix(text, line string) bool {
	if len(text) < len(line) || text[:len(line)] != line {
		return false
	}
	return len(text) == len(line) || text[len(line)] == '\n'
}

// afterLine returns text following the line that starts at offset.
func afterLine(text string, offset int) string {
	next := strings.IndexByte(text[offset:], '\n')
	if next < 0 {
		return ""
	}
	return text[offset+next+1:]
}

// indexLine returns the offset of the first line of text that equals line,
// or -1.
func indexLine(text, line string) int {
	for offset := 0; offset < len(text); {
		if hasLinePrefix(text[offset:], line) {
			return offset
		}
		next := strings.IndexByte(text[offset:], '\n')
		if next < 0 {
			break
		}
		offset += next + 1
	}
	return -1
}

// Render serializes the document. Strings are always double-quoted so the
// output does not depend on which characters a value happens to contain.
func (d Document) Render() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")

	if len(d.Fields) > 0 {
		matter, err := MarshalFields(d.Fields)
		if err != nil {
			return nil, err
		}
		buf.Write(matter)
	}

	buf.WriteString(delimiter + "\n")
	buf.WriteString(d.Body)
	return buf.Bytes(), nil
}

// MarshalFields encodes fields as a YAML mapping with 2-space indentation
// and double-quoted strings.
func MarshalFields(fields Fields) ([]byte, error) {
	node, err := toNode(fields)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}
	return buf.Bytes(), nil
}

func scalar(tag, value string, style yaml.Style) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value, Style: style}
}

func toNode(v any) (*yaml.Node, error) {
	switch val := v.(type) {
	case nil:
		return scalar("", "null", 0), nil
	case string:
		return scalar("!!str", val, yaml.DoubleQuotedStyle), nil
	case bool:
		return scalar("", strconv.FormatBool(val), 0), nil
	case int:
		return scalar("", strconv.Itoa(val), 0), nil
	case int64:
		return scalar("", strconv.FormatInt(val, 10), 0), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("cannot encode %v", val)
		}
		return scalar("", strconv.FormatFloat(val, 'f', -1, 64), 0), nil
	case []string:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, s := range val {
			seq.Content = append(seq.Content, scalar("!!str", s, yaml.DoubleQuotedStyle))
		}
		if len(seq.Content) == 0 {
			seq.Style = yaml.FlowStyle
		}
		return seq, nil
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range val {
			n, err := toNode(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		if len(seq.Content) == 0 {
			seq.Style = yaml.FlowStyle
		}
		return seq, nil
	case Fields:
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, field := range val {
			if field.Value == nil {
				continue
			}
			n, err := toNode(field.Value)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", field.Key, err)
			}
			m.Content = append(m.Content, scalar("!!str", field.Key, 0), n)
		}
		if len(m.Content) == 0 {
			m.Style = yaml.FlowStyle
		}
		return m, nil
	case Literal:
		return scalar(val.Tag, val.Value, 0), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make(Fields, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, Field{Key: k, Value: val[k]})
		}
		return toNode(fields)
	default:
		return nil, fmt.Errorf("unsupported frontmatter value %T", v)
	}
}

func fromNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.MappingNode:
		fields := make(Fields, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := fromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			fields = append(fields, Field{Key: n.Content[i].Value, Value: v})
		}
		return fields, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case yaml.AliasNode:
		return fromNode(n.Alias)
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		switch val := v.(type) {
		case nil, string, bool:
			return val, nil
		case float64:
			if math.IsNaN(val) || math.IsInf(val, 0) {
				return Literal{Tag: n.ShortTag(), Value: n.Value}, nil
			}
			return val, nil
		case int:
			return int64(val), nil
		default:
			// Dates and other typed scalars are written back as they were.
			return Literal{Tag: n.ShortTag(), Value: n.Value}, nil
		}
	}
}
