package recordbase

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrMalformedToken indicates that an auth token could not be decoded
	// as a signed-token envelope or is missing required claims.
	ErrMalformedToken = errors.New("malformed token")

	// ErrRootedPath indicates that a caller passed an absolute resource
	// path; the site base URL already supplies the root.
	ErrRootedPath = errors.New("rooted path")

	// ErrUnauthenticated indicates that an operation requiring a session
	// was attempted without one.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrStreamClosed is returned by Stream.Next after Close.
	ErrStreamClosed = errors.New("stream closed")
)

// StatusError carries a non-2xx HTTP status and the response body verbatim.
// Match with errors.As:
//
//	var se *recordbase.StatusError
//	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound { ... }
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// maxErrorBody caps how much of an error response is retained in a
// StatusError, so a misbehaving server cannot balloon error values.
const maxErrorBody = 4096

// checkStatus consumes resp if its status is outside 2xx and converts it to
// a *StatusError. On success the body is left untouched for the caller.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := readLimited(resp.Body)
	_ = resp.Body.Close()
	return &StatusError{StatusCode: resp.StatusCode, Body: body}
}

func readLimited(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxErrorBody))
}
