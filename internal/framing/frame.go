package framing

import "encoding/json"

// Kind discriminates decoded frames.
type Kind int

const (
	// KindObject is a parsed JSON object with a string "type" field.
	KindObject Kind = iota
	// KindRawLine is a completed line that is not such an object.
	KindRawLine
	// KindError is a framing failure: oversize line or buffer overflow.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindRawLine:
		return "raw_line"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Frame is the decoder's output unit.
type Frame struct {
	Kind Kind

	// Type is the object's "type" field. Set for KindObject.
	Type string

	// Object is the full JSON line. Set for KindObject.
	Object json.RawMessage

	// Line is the original text. Set for KindRawLine.
	Line string

	// Err describes the framing failure, including a bounded preview
	// of the offending content. Set for KindError.
	Err string
}
