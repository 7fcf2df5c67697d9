package bchan

import (
	"context"
	"log/slog"
)

// ReqResp performs a blocking send of req to reqs,
// then blocks awaiting a value from resps.
// If ctx is canceled during either half,
// the zero value of U is returned with false.
//
// The label names the exchange in the cancellation logs,
// as "making <label> request" and "receiving <label> response".
//
// This is the shorthand for synchronous request-response exchanges
// with a kernel goroutine.
func ReqResp[T, U any](
	ctx context.Context, log *slog.Logger,
	reqs chan<- T, req T,
	resps <-chan U,
	label string,
) (resp U, ok bool) {
	if !SendC(ctx, log, reqs, req, "making "+label+" request") {
		return resp, false
	}

	return RecvC(ctx, log, resps, "receiving "+label+" response")
}
