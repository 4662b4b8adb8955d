package index

import (
	"fmt"

	"github.com/emporia-search/emporia/internal/domain"
)

// decodePrefixLen bounds how much of a bad payload is kept for diagnosis.
const decodePrefixLen = 200

// DecodeError reports a response body that did not match the expected
// positional record shape. Prefix holds at most decodePrefixLen raw bytes;
// the full payload is never retained or logged.
type DecodeError struct {
	Op     string
	Cause  error
	Prefix []byte
}

func newDecodeError(op string, cause error, body []byte) *DecodeError {
	prefix := body
	if len(prefix) > decodePrefixLen {
		prefix = prefix[:decodePrefixLen]
	}
	return &DecodeError{
		Op:     op,
		Cause:  cause,
		Prefix: append([]byte(nil), prefix...),
	}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %v (raw prefix %d bytes: %x)", e.Op, e.Cause, len(e.Prefix), e.Prefix)
}

func (e *DecodeError) Unwrap() error { return domain.ErrIndexDecode }
