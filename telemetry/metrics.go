// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	ChatMessagesSeen   prometheus.Counter
	CommandsHandled    *prometheus.CounterVec
	RepliesPosted      prometheus.Counter
	SendRetries        prometheus.Counter
	SendsDropped       prometheus.Counter
	RemindersFired     prometheus.Counter
	RemindersFailed    prometheus.Counter
	PomodoroCompleted  prometheus.Counter
	AnnouncementsFired prometheus.Counter
	RowStoreErrors     prometheus.Counter

	// Histograms (seconds)
	CommandDuration prometheus.Observer

	// Gauges
	ActivePomodoros  prometheus.Gauge
	PendingReminders prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ChatMessagesSeen = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_chat_messages_seen_total", Help: "Chat messages observed by the ingestion loop"})
		CommandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bot_commands_handled_total", Help: "Recognized commands dispatched, by command name"}, []string{"command"})
		RepliesPosted = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_replies_posted_total", Help: "Replies successfully posted to live chat"})
		SendRetries = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_send_retries_total", Help: "Outbound sends retried after auth failure or rate limit"})
		SendsDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_sends_dropped_total", Help: "Outbound sends dropped after exhausting the credential pool"})
		RemindersFired = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_reminders_fired_total", Help: "Reminders that fired and posted"})
		RemindersFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_reminders_failed_total", Help: "Reminders marked Failed during firing"})
		PomodoroCompleted = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_pomodoro_sessions_completed_total", Help: "Pomodoro study phases completed"})
		AnnouncementsFired = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_announcements_fired_total", Help: "Scheduled announcements posted"})
		RowStoreErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_rowstore_errors_total", Help: "Row store operations that returned an error"})
		CommandDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bot_command_duration_seconds", Help: "Command handling duration seconds", Buckets: prometheus.DefBuckets})
		ActivePomodoros = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_active_pomodoros", Help: "Currently registered pomodoro timers"})
		PendingReminders = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_pending_reminders", Help: "Reminder timers waiting to fire"})
	})
}

// CountCommand increments the per-command counter if metrics are initialized.
func CountCommand(name string) {
	if CommandsHandled != nil {
		CommandsHandled.WithLabelValues(name).Inc()
	}
}

// CountRowStoreError increments the row store error counter if metrics are initialized.
func CountRowStoreError() {
	if RowStoreErrors != nil {
		RowStoreErrors.Inc()
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
