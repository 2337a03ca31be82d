package lifecycle

import "log/slog"

// compensator collects undo steps for a multi-step transition across the
// database and the blob store. There is no cross-store transaction; on
// failure the completed steps are reversed best-effort, in reverse order.
type compensator struct {
	steps []func() error
	names []string
}

func (c *compensator) add(name string, undo func() error) {
	c.steps = append(c.steps, undo)
	c.names = append(c.names, name)
}

// run executes the recorded undo steps. Individual failures are logged and
// skipped; compensation never masks the original error.
func (c *compensator) run() {
	for i := len(c.steps) - 1; i >= 0; i-- {
		if err := c.steps[i](); err != nil {
			slog.Error("compensation step failed", "step", c.names[i], "error", err)
		}
	}
}
