package codec

import "fmt"

// SchemaError reports a malformed catalogue: a schema that fails to
// compile, or a type present in the catalogue but not in the Go type set
// (or the other way around).
type SchemaError struct {
	Type string
	Err  error
}

func (e *SchemaError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("schema catalogue: %v", e.Err)
	}
	return fmt.Sprintf("schema %s: %v", e.Type, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// UnknownTypeError reports an encode/decode against an unregistered
// message-type name.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown message type %q", e.Type)
}

// CodecError reports bytes or a value that do not conform to a registered
// type's grammar.
type CodecError struct {
	Type string
	Err  error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("codec %s: %v", e.Type, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }
