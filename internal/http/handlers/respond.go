package handlers

import (
	"context"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/buckles/server/internal/apiresponse"
	"github.com/buckles/server/internal/doclog"
	"github.com/buckles/server/internal/logger"
	"github.com/buckles/server/internal/model"
)

// Reporter writes server-side failures to the document log and returns the
// sanitized error envelope. The original error never reaches the client;
// support correlates via the transaction id.
type Reporter struct {
	store  doclog.Store
	logger *logger.Logger
}

// NewReporter creates a Reporter over the given document-log store.
func NewReporter(store doclog.Store, log *logger.Logger) *Reporter {
	return &Reporter{store: store, logger: log}
}

// ServerError records err against txID and writes a generic store-error
// envelope.
func (rp *Reporter) ServerError(w http.ResponseWriter, txID string, err error) {
	rp.logger.Error("request failed", "transaction_id", txID, "error", err.Error())

	record := model.ExceptionLog{
		ID:         txID,
		Message:    err.Error(),
		StackTrace: string(debug.Stack()),
		Timestamp:  time.Now(),
	}
	// bounded independently of the (possibly cancelled) request context
	logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, logErr := rp.store.InsertRecord(logCtx, doclog.ExceptionCollection, record); logErr != nil {
		rp.logger.Error("failed to write exception record",
			"transaction_id", txID, "error", logErr.Error())
	}

	apiresponse.WriteError(w, txID, apiresponse.CodeStore, "internal error, quote the transaction id to support")
}

// getClientIP returns the client address for throttle keying. The router's
// RealIP middleware has already resolved forwarding headers into RemoteAddr;
// direct connections still carry a port, which is stripped so one client
// maps to one key.
func getClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
