// Package codec centralizes metadata document encoding.
//
// Persisted metadata always records which codec wrote it; changing codecs is a
// breaking-change boundary for files written by older codecs.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "json-pretty":
		return PrettyJSON{}, true
	default:
		return nil, false
	}
}

// Default is the default codec used for the metadata document.
//
// The ledger is read by humans and external tooling, so the default keeps the
// document pretty-printed with non-ASCII text preserved.
var Default Codec = PrettyJSON{}
