package document

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// RequestBody is a request document as received. It is kept raw; the
// validator decides whether it is well formed.
type RequestBody struct {
	Raw []byte
}

// NewRequestBody wraps raw. It returns nil when raw is empty or only
// whitespace so that "no body" is represented as a nil *RequestBody.
func NewRequestBody(raw []byte) *RequestBody {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return &RequestBody{Raw: raw}
}

// Data returns the raw "data" member, or nil when it is absent.
func (b *RequestBody) Data() json.RawMessage {
	if b == nil {
		return nil
	}
	res := gjson.GetBytes(b.Raw, "data")
	if !res.Exists() {
		return nil
	}
	return json.RawMessage(res.Raw)
}
