package email_processor

import (
	"bytes"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/internal/models"
)

// ParseHeaders extracts the structured header fields from the raw message
// text and normalizes them.
func ParseHeaders(data []byte) (models.HeaderMap, error) {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read mime envelope")
	}

	rawHeaders := make(map[string][]string)
	for _, key := range envelope.GetHeaderKeys() {
		rawHeaders[key] = envelope.GetHeaderValues(key)
	}

	return NormalizeHeaders(rawHeaders), nil
}

// NormalizeHeaders lower-cases header names and collapses values: a header
// seen more than twice keeps its whole ordered sequence, one seen once or
// twice collapses to its first value, one seen with no value maps to null.
// Applying it to an already-normalized map changes nothing.
func NormalizeHeaders(raw map[string][]string) models.HeaderMap {
	headers := make(models.HeaderMap, len(raw))
	for key, values := range raw {
		name := strings.ToLower(key)
		switch {
		case len(values) > 2:
			headers[name] = append([]string(nil), values...)
		case len(values) > 0:
			headers[name] = values[0]
		default:
			headers[name] = nil
		}
	}
	return headers
}
