package service

import (
	"context"
	"time"
)

// advisoryTimeout bounds each best-effort side step so a hung cache or
// transport cannot stall the request path.
const advisoryTimeout = 3 * time.Second

// bestEffort runs a side step whose failure must not fail the committed
// write. The step gets a fresh deadline detached from the request's
// cancellation, and any error is logged and swallowed.
func (s *UserService) bestEffort(ctx context.Context, op string, fn func(context.Context) error) {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), advisoryTimeout)
	defer cancel()

	if err := fn(detached); err != nil {
		s.logger.Warn("best-effort step failed", "op", op, "error", err)
	}
}
