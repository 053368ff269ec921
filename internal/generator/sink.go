package generator

import (
	"encoding/json"
	"io"
)

// JSONLSink writes one JSON-encoded record per line.
type JSONLSink struct {
	enc *json.Encoder
}

// NewJSONLSink wraps a writer. The caller owns closing the underlying file.
func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{enc: json.NewEncoder(w)}
}

// Write implements Sink.
func (s *JSONLSink) Write(rec Record) error {
	return s.enc.Encode(rec)
}
