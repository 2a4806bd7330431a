package trace

import (
	"net/http"

	"github.com/google/uuid"
)

// Header carries the caller-supplied transaction id.
const Header = "X-Transaction-Id"

// FromRequest extracts the transaction id from the request header, or mints
// a fresh one. The id is threaded explicitly through every downstream call;
// it is never stored in ambient state.
func FromRequest(r *http.Request) string {
	if id := r.Header.Get(Header); id != "" {
		return id
	}
	return uuid.NewString()
}
