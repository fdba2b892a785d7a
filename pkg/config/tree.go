package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

var (
	ErrKeyNotFound = errors.New("config: key not found")
	ErrInvalidFile = errors.New("config: invalid file")
)

// Tree is an immutable view over a nested configuration map.
type Tree struct {
	data map[string]any
}

// New wraps an existing map. The map must not be modified afterwards.
func New(data map[string]any) *Tree {
	if data == nil {
		data = map[string]any{}
	}
	return &Tree{data: data}
}

// Parse decodes YAML into a Tree.
func Parse(raw []byte) (*Tree, error) {
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, errors.Join(ErrInvalidFile, err)
	}
	if data == nil {
		return New(nil), nil
	}
	return New(normalize(data).(map[string]any)), nil
}

// Load reads and parses a YAML file.
func Load(path string) (*Tree, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	t, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return t, nil
}

// Lookup resolves a dotted key. An empty key returns the whole tree.
func (t *Tree) Lookup(key string) (any, bool) {
	if t == nil {
		return nil, false
	}
	if key == "" {
		return t.data, true
	}

	var cur any = t.data
	for part := range strings.SplitSeq(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Get returns the value at key, or def when the key is absent.
func (t *Tree) Get(key string, def any) any {
	if v, ok := t.Lookup(key); ok {
		return v
	}
	return def
}

// String returns the string at key, or def when absent or not a string.
func (t *Tree) String(key, def string) string {
	if s, ok := t.Get(key, nil).(string); ok {
		return s
	}
	return def
}

// Bool returns the bool at key, or def when absent or not a bool.
func (t *Tree) Bool(key string, def bool) bool {
	if b, ok := t.Get(key, nil).(bool); ok {
		return b
	}
	return def
}

// Int returns the integer at key, or def when absent or not an integer.
func (t *Tree) Int(key string, def int) int {
	if n, ok := t.Get(key, nil).(int); ok {
		return n
	}
	return def
}

// Strings returns the list of strings at key. Non-string items are skipped.
func (t *Tree) Strings(key string) []string {
	items, ok := t.Get(key, nil).([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Sub returns the subtree at key, or an empty tree.
func (t *Tree) Sub(key string) *Tree {
	m, _ := t.Get(key, nil).(map[string]any)
	return New(m)
}

// Decode unpacks the value at key into out using yaml field tags.
// Duration strings such as "5s" are converted to time.Duration.
func (t *Tree) Decode(key string, out any) error {
	v, ok := t.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return DecodeValue(v, out)
}

// DecodeValue unpacks an arbitrary config value into out.
func DecodeValue(v, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "yaml",
	})
	if err != nil {
		return err
	}
	return dec.Decode(v)
}

// normalize converts yaml's map[any]any leftovers into map[string]any.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	default:
		return v
	}
}
