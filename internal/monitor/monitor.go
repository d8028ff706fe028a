package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/toyutoyu/supportbot/internal/util"
)

// Monitor runs full reachability passes over the configured targets and
// notifies on hard failures. Passes are self-contained: overlapping ticks
// share no state and are tolerated.
type Monitor struct {
	checker  *Checker
	notifier *Notifier
	targets  []string
}

// New creates a Monitor.
func New(checker *Checker, notifier *Notifier, targets []string) *Monitor {
	return &Monitor{checker: checker, notifier: notifier, targets: targets}
}

// RunOnce probes every target and sends one notification listing the
// failures, if any. All-OK passes stay silent.
func (m *Monitor) RunOnce(ctx context.Context) error {
	runID := uuid.NewString()
	slog.Debug("Monitor.RunOnce: starting pass", "run_id", runID, "targets", len(m.targets))

	results, failures := m.checker.CheckAll(ctx, m.targets)
	slog.Info("Monitor.RunOnce: pass complete", "run_id", runID, "probed", len(results), "failures", len(failures))

	if len(failures) == 0 {
		return nil
	}

	message := strings.Join([]string{
		"[toyutoyu-suporter] 疎通確認エラー",
		"時刻(JST): " + util.NowJSTString(),
		"対象:",
		formatFailures(failures),
	}, "\n")

	if err := m.notifier.Notify(ctx, message); err != nil {
		return fmt.Errorf("monitor: failure notification: %w", err)
	}
	return nil
}

// Tick is the cron entry point. Failures of the monitoring pass itself —
// panics included — become a distinct notification instead of crashing the
// process; a broken monitor should page, not die.
func (m *Monitor) Tick(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Monitor.Tick: monitor pass panicked", "panic", rec)
			m.notifyMonitorFailure(ctx, fmt.Sprintf("%v", rec))
		}
	}()

	if err := m.RunOnce(ctx); err != nil {
		slog.Error("Monitor.Tick: monitor pass failed", "error", err)
		m.notifyMonitorFailure(ctx, err.Error())
	}
}

func (m *Monitor) notifyMonitorFailure(ctx context.Context, detail string) {
	message := strings.Join([]string{
		"[toyutoyu-suporter] 監視処理自体が例外",
		"時刻(JST): " + util.NowJSTString(),
		"ERROR: " + detail,
	}, "\n")
	if err := m.notifier.Notify(ctx, message); err != nil {
		slog.Error("Monitor.notifyMonitorFailure: notification failed", "error", err)
	}
}

// formatFailures renders one bullet per failed probe: the error message for
// network-level failures, the HTTP status otherwise.
func formatFailures(failures []ProbeResult) string {
	lines := make([]string, 0, len(failures))
	for _, f := range failures {
		if f.Error != "" {
			lines = append(lines, fmt.Sprintf("- %s ERROR: %s", f.URL, f.Error))
			continue
		}
		lines = append(lines, strings.TrimSpace(fmt.Sprintf("- %s HTTP %d %s", f.URL, f.Status, f.StatusText)))
	}
	return strings.Join(lines, "\n")
}
