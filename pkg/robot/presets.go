package robot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
)

// DefaultPresetFile is the preset store used when the configuration names
// none.
const DefaultPresetFile = "presets.json"

// Vector is one target position per axis, in axis order.
type Vector [NumAxes]int

// Preset is a named target vector.
type Preset struct {
	Name   string
	Vector Vector
}

// Built-in presets used when no preset file exists yet.
var builtinPresets = []Preset{
	{"Home", Vector{512, 512, 512, 956, 800, 430}},
	{"Ready", Vector{512, 700, 600, 700, 512, 660}},
	{"Rest", Vector{512, 512, 200, 980, 512, 430}},
}

// Presets is a named collection of target vectors backed by a JSON file.
//
// Names keep insertion order. Positional hotkeys (1, 2, 3, ...) resolve
// through Names, so reordering the file reassigns them.
type Presets struct {
	path    string
	names   []string
	vectors map[string]Vector
}

// DefaultPresets returns the built-in presets bound to path. Nothing is
// written until the first Save.
func DefaultPresets(path string) *Presets {
	p := &Presets{path: path, vectors: make(map[string]Vector)}
	for _, b := range builtinPresets {
		p.set(b.Name, b.Vector)
	}
	return p
}

// LoadPresets loads presets from a JSON file. A missing file yields the
// built-in presets.
func LoadPresets(path string) (*Presets, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultPresets(path), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preset file: %w", err)
	}

	p := &Presets{path: path, vectors: make(map[string]Vector)}
	if err := p.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("parse preset file %s: %w", path, err)
	}
	return p, nil
}

// Path returns the file backing the presets.
func (p *Presets) Path() string {
	return p.path
}

// Len returns the number of presets.
func (p *Presets) Len() int {
	return len(p.names)
}

// Names returns preset names in insertion order.
func (p *Presets) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// All returns every preset in insertion order.
func (p *Presets) All() []Preset {
	out := make([]Preset, len(p.names))
	for i, name := range p.names {
		out[i] = Preset{Name: name, Vector: p.vectors[name]}
	}
	return out
}

// Get returns the vector stored under name.
func (p *Presets) Get(name string) (Vector, bool) {
	v, ok := p.vectors[name]
	return v, ok
}

// Apply returns the vector to assign for preset name. It reports false, and
// the caller must leave its targets alone, when the name is unknown.
func (p *Presets) Apply(name string) (Vector, bool) {
	return p.Get(name)
}

// Save stores v under name, replacing any existing preset of that name in
// place, and rewrites the whole file. The presets in memory only change once
// the file is written.
func (p *Presets) Save(name string, v Vector) error {
	if name == "" {
		return errors.New("preset name is empty")
	}
	if err := ValidateVector(v); err != nil {
		return fmt.Errorf("preset %q: %w", name, err)
	}
	next := p.clone()
	next.set(name, v)
	return p.commit(next)
}

// Delete removes a preset and rewrites the file. Unknown names are an error.
func (p *Presets) Delete(name string) error {
	if _, ok := p.vectors[name]; !ok {
		return fmt.Errorf("preset %q not found", name)
	}
	next := p.clone()
	delete(next.vectors, name)
	next.names = slices.DeleteFunc(next.names, func(n string) bool { return n == name })
	return p.commit(next)
}

func (p *Presets) clone() *Presets {
	return &Presets{
		path:    p.path,
		names:   slices.Clone(p.names),
		vectors: maps.Clone(p.vectors),
	}
}

// commit persists next and adopts its contents on success.
func (p *Presets) commit(next *Presets) error {
	if err := next.persist(); err != nil {
		return err
	}
	p.names, p.vectors = next.names, next.vectors
	return nil
}

func (p *Presets) set(name string, v Vector) {
	if _, ok := p.vectors[name]; !ok {
		p.names = append(p.names, name)
	}
	p.vectors[name] = v
}

// persist writes to a temp file and renames it over the store.
func (p *Presets) persist() error {
	data, err := p.MarshalJSON()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')

	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, ".presets-*.json")
	if err != nil {
		return fmt.Errorf("save presets: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("save presets: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save presets: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("save presets: %w", err)
	}
	return nil
}

// MarshalJSON encodes the presets as a JSON object in insertion order.
func (p *Presets) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range p.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p.vectors[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of name -> [6]int, keeping the key
// order of the document. Duplicate names and data after the object are
// rejected. On error p is left unchanged.
func (p *Presets) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}

	next := &Presets{path: p.path, vectors: make(map[string]Vector)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name := tok.(string)
		if _, dup := next.vectors[name]; dup {
			return fmt.Errorf("duplicate preset %q", name)
		}

		var raw []int
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("preset %q: %w", name, err)
		}
		if len(raw) != NumAxes {
			return fmt.Errorf("preset %q: expected %d positions, got %d", name, NumAxes, len(raw))
		}
		var v Vector
		copy(v[:], raw)
		next.set(name, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after presets object")
	}
	p.names, p.vectors = next.names, next.vectors
	return nil
}
