// Package frontmatter encodes and decodes the leading YAML metadata block of
// stored items. Only the restricted subset the site uses is supported: a flat
// mapping of scalar (or simple list) values followed by a free-text body.
package frontmatter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/apperr"
)

const delim = "---"

// Field is one key/value pair. Order is significant and preserved.
type Field struct {
	Key   string
	Value any
}

// Document is a decoded item: ordered front-matter fields plus body.
// Partial is set when strict YAML parsing failed and the fields were
// recovered by the best-effort line scanner; they may be incomplete.
type Document struct {
	Fields  []Field
	Body    string
	Partial bool
}

// Get returns the value for key, or nil and false when absent.
func (d *Document) Get(key string) (any, bool) {
	for _, f := range d.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// GetString returns the value for key rendered as a string, or "".
func (d *Document) GetString(key string) string {
	v, ok := d.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Set replaces the value for key in place, or appends the field when absent.
func (d *Document) Set(key string, value any) {
	for i := range d.Fields {
		if d.Fields[i].Key == key {
			d.Fields[i].Value = value
			return
		}
	}
	d.Fields = append(d.Fields, Field{Key: key, Value: value})
}

// Decode splits data into front matter and body.
//
// The file must start with a "---" delimiter line and contain a closing one;
// otherwise Decode returns apperr.ErrParse. When the block is present but not
// valid YAML, Decode falls back to line-wise "key: value" extraction and
// marks the result Partial instead of failing.
func Decode(data []byte) (*Document, error) {
	s := string(data)
	if !strings.HasPrefix(s, delim) {
		return nil, fmt.Errorf("missing front matter delimiter: %w", apperr.ErrParse)
	}

	rest := s[len(delim):]
	end := strings.Index(rest, "\n"+delim)
	if end < 0 {
		return nil, fmt.Errorf("unterminated front matter: %w", apperr.ErrParse)
	}

	block := rest[:end]
	after := rest[end+1+len(delim):]
	// Skip the remainder of the closing delimiter line.
	if i := strings.Index(after, "\n"); i >= 0 {
		after = after[i+1:]
	} else {
		after = ""
	}

	doc := &Document{Body: strings.TrimSpace(after)}

	fields, err := decodeMapping([]byte(block))
	if err != nil {
		doc.Fields = scanFields(block)
		doc.Partial = true
		return doc, nil
	}
	doc.Fields = fields
	return doc, nil
}

// decodeMapping parses the YAML block preserving key order.
func decodeMapping(block []byte) ([]Field, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(block, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	m := root.Content[0]
	if m.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("front matter is not a mapping")
	}
	fields := make([]Field, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		var v any
		if err := m.Content[i+1].Decode(&v); err != nil {
			v = m.Content[i+1].Value
		}
		fields = append(fields, Field{Key: m.Content[i].Value, Value: v})
	}
	return fields, nil
}

// scanFields is the conservative fallback: it extracts "key: value" lines,
// stripping surrounding quotes. Lines without a colon are ignored.
func scanFields(block string) []Field {
	var fields []Field
	for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		val = strings.TrimSpace(val)
		val = strings.Trim(val, `"'`)
		fields = append(fields, Field{Key: key, Value: val})
	}
	return fields
}

// Encode renders fields and body as a stored item:
//
//	---
//	<fields in insertion order>
//	---
//
//	<body>
//
// Scalar values are YAML-escaped so the output round-trips through Decode.
func Encode(fields []Field, body string) ([]byte, error) {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range fields {
		k := &yaml.Node{Kind: yaml.ScalarNode, Value: f.Key}
		v := &yaml.Node{}
		if err := v.Encode(f.Value); err != nil {
			return nil, fmt.Errorf("encode field %q: %w", f.Key, err)
		}
		// Keep simple lists on one line ("categories: [writing]").
		if v.Kind == yaml.SequenceNode {
			v.Style = yaml.FlowStyle
		}
		m.Content = append(m.Content, k, v)
	}

	var block []byte
	if len(fields) > 0 {
		var err error
		block, err = yaml.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("encode front matter: %w", err)
		}
	}

	var b strings.Builder
	b.WriteString(delim + "\n")
	b.Write(block)
	b.WriteString(delim + "\n\n")
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n")
	return []byte(b.String()), nil
}
