// Package codec holds the typed-message registry: it loads the message
// schema catalogue, binds every schema to its Go representation and
// performs validated encode/decode by message-type name. It knows nothing
// about the network.
package codec

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var DefaultCatalog []byte

type catalogFile struct {
	Defs  map[string]any          `yaml:"defs"`
	Types map[string]catalogEntry `yaml:"types"`
}

type catalogEntry struct {
	Response string         `yaml:"response"`
	Push     bool           `yaml:"push"`
	Schema   map[string]any `yaml:"schema"`
}

type entry struct {
	name     string
	response string
	push     bool
	schema   *jsonschema.Schema
	factory  func() any
}

// Registry maps message-type names to validated codecs. It is immutable
// after Load and safe for concurrent use.
type Registry struct {
	types map[string]*entry
	names []string
}

// Load parses the catalogue, compiles every schema and binds it to the
// matching factory. Any mismatch between the catalogue and the factory set
// is a *SchemaError: talking to the gate with a half-registered protocol
// is worse than not starting.
func Load(catalog []byte, factories map[string]func() any) (*Registry, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(catalog, &cf); err != nil {
		return nil, &SchemaError{Err: err}
	}
	if len(cf.Types) == 0 {
		return nil, &SchemaError{Err: fmt.Errorf("catalogue defines no types")}
	}

	compiler := jsonschema.NewCompiler()
	if cf.Defs != nil {
		b, err := json.Marshal(cf.Defs)
		if err != nil {
			return nil, &SchemaError{Err: fmt.Errorf("defs: %w", err)}
		}
		if err := compiler.AddResource("catalog.defs.json", bytes.NewReader(b)); err != nil {
			return nil, &SchemaError{Err: fmt.Errorf("defs: %w", err)}
		}
	}

	r := &Registry{types: make(map[string]*entry, len(cf.Types))}
	for name, ce := range cf.Types {
		fac, ok := factories[name]
		if !ok {
			return nil, &SchemaError{Type: name, Err: fmt.Errorf("no Go type registered")}
		}
		if ce.Schema == nil {
			return nil, &SchemaError{Type: name, Err: fmt.Errorf("missing schema body")}
		}
		b, err := json.Marshal(ce.Schema)
		if err != nil {
			return nil, &SchemaError{Type: name, Err: err}
		}
		url := name + ".schema.json"
		if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
			return nil, &SchemaError{Type: name, Err: err}
		}
		s, err := compiler.Compile(url)
		if err != nil {
			return nil, &SchemaError{Type: name, Err: err}
		}
		r.types[name] = &entry{
			name:     name,
			response: ce.Response,
			push:     ce.Push,
			schema:   s,
			factory:  fac,
		}
	}
	for name := range factories {
		if _, ok := r.types[name]; !ok {
			return nil, &SchemaError{Type: name, Err: fmt.Errorf("not in catalogue")}
		}
	}
	for name, e := range r.types {
		if e.response != "" {
			if _, ok := r.types[e.response]; !ok {
				return nil, &SchemaError{Type: name, Err: fmt.Errorf("response type %q undefined", e.response)}
			}
		}
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Types returns all registered type names, sorted.
func (r *Registry) Types() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Known reports whether typeName is registered.
func (r *Registry) Known(typeName string) bool {
	_, ok := r.types[typeName]
	return ok
}

// IsPush reports whether typeName is an unsolicited server message.
func (r *Registry) IsPush(typeName string) bool {
	e, ok := r.types[typeName]
	return ok && e.push
}

// ResponseType returns the paired response type for a request type.
func (r *Registry) ResponseType(reqType string) (string, bool) {
	e, ok := r.types[reqType]
	if !ok || e.response == "" {
		return "", false
	}
	return e.response, true
}

// Encode validates v against typeName's schema and returns its wire bytes.
func (r *Registry) Encode(typeName string, v any) ([]byte, error) {
	e, ok := r.types[typeName]
	if !ok {
		return nil, &UnknownTypeError{Type: typeName}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, &CodecError{Type: typeName, Err: err}
	}
	if err := e.validate(b); err != nil {
		return nil, &CodecError{Type: typeName, Err: err}
	}
	return b, nil
}

// Decode parses wire bytes into typeName's Go representation, validating
// them against the schema first.
func (r *Registry) Decode(typeName string, b []byte) (any, error) {
	e, ok := r.types[typeName]
	if !ok {
		return nil, &UnknownTypeError{Type: typeName}
	}
	if err := e.validate(b); err != nil {
		return nil, &CodecError{Type: typeName, Err: err}
	}
	v := e.factory()
	if err := json.Unmarshal(b, v); err != nil {
		return nil, &CodecError{Type: typeName, Err: err}
	}
	return v, nil
}

func (e *entry) validate(b []byte) error {
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	return e.schema.Validate(doc)
}

// VerifyResult is one type's round-trip outcome.
type VerifyResult struct {
	Type string
	Err  error
}

// VerifyEach round-trips every registered type's zero value through
// encode/decode/encode and checks both representations for equivalence.
// A failure here means a schema drifted from its Go type.
func (r *Registry) VerifyEach() []VerifyResult {
	out := make([]VerifyResult, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, VerifyResult{Type: name, Err: r.verifyOne(name)})
	}
	return out
}

// Verify returns the first round-trip failure, or nil if all types pass.
func (r *Registry) Verify() error {
	for _, res := range r.VerifyEach() {
		if res.Err != nil {
			return fmt.Errorf("verify %s: %w", res.Type, res.Err)
		}
	}
	return nil
}

func (r *Registry) verifyOne(name string) error {
	e := r.types[name]
	v0 := e.factory()
	b1, err := r.Encode(name, v0)
	if err != nil {
		return err
	}
	v1, err := r.Decode(name, b1)
	if err != nil {
		return err
	}
	b2, err := r.Encode(name, v1)
	if err != nil {
		return err
	}
	if !bytes.Equal(b1, b2) {
		return fmt.Errorf("re-encode mismatch: %s != %s", b1, b2)
	}
	if !reflect.DeepEqual(v0, v1) {
		return fmt.Errorf("decoded value differs from original: %#v != %#v", v0, v1)
	}
	return nil
}

// Describe attempts to decode b against candidate, or against every
// registered type in name order when candidate is empty, returning the
// first structural match. Offline tooling only.
func (r *Registry) Describe(b []byte, candidate string) (string, any, error) {
	if candidate != "" {
		v, err := r.Decode(candidate, b)
		if err != nil {
			return "", nil, err
		}
		return candidate, v, nil
	}
	for _, name := range r.names {
		v, err := r.Decode(name, b)
		if err == nil {
			return name, v, nil
		}
	}
	return "", nil, fmt.Errorf("no registered type matches %d bytes", len(b))
}
