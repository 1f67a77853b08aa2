package chain

import (
	"bytes"

	"github.com/tidwall/gjson"

	apperrors "github.com/kbukum/runkit/errors"
)

// DecodeInput turns a JSON document into a chain input. Objects that are
// not nested in another object become *runnable.Values in document order.
// Integral numbers decode as int64. An empty document decodes to nil.
func DecodeInput(data []byte) (any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, apperrors.InvalidInput("input", "malformed JSON")
	}
	return resultValue(gjson.ParseBytes(data))
}
