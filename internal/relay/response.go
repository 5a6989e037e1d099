// Package relay forwards user text to the upstream text-generation API and
// turns its loosely-shaped replies into chunks ready for Telegram.
package relay

import "github.com/tidwall/gjson"

type responseKind int

const (
	kindAbsent responseKind = iota
	kindText
	kindJSON
)

// RawResponse is an upstream reply before normalization: absent, plain text,
// or a JSON document. The zero value is an absent response.
type RawResponse struct {
	kind responseKind
	body []byte
}

// TextResponse wraps a body that is not JSON.
func TextResponse(s string) RawResponse {
	return RawResponse{kind: kindText, body: []byte(s)}
}

// JSONResponse wraps a JSON document. Invalid JSON is kept as text.
func JSONResponse(b []byte) RawResponse {
	if !gjson.ValidBytes(b) {
		return RawResponse{kind: kindText, body: b}
	}
	return RawResponse{kind: kindJSON, body: b}
}

// parseBody decodes an HTTP body, falling back to text when it is not JSON.
func parseBody(b []byte) RawResponse {
	return JSONResponse(b)
}

// IsAbsent reports whether no response was received.
func (r RawResponse) IsAbsent() bool {
	return r.kind == kindAbsent
}

// IsJSON reports whether the body decoded as JSON.
func (r RawResponse) IsJSON() bool {
	return r.kind == kindJSON
}

// String returns the textual form of the whole response.
func (r RawResponse) String() string {
	return string(r.body)
}
