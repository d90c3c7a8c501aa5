package ytchat

import (
	"context"
	"log/slog"
	"time"

	"github.com/sunniebot/studybot/bot"
)

// Poller pulls live chat messages on a fixed interval and forwards them as
// events to the ingestion loop. The stream's liveness is checked before each
// poll; the poller returns once the stream reports not live.
type Poller struct {
	Client   *Client
	Interval time.Duration
}

// Run polls until the stream ends or ctx is canceled. Transient API errors are
// logged and retried on the next tick; they never kill the loop.
func (p *Poller) Run(ctx context.Context, events chan<- bot.Event) error {
	interval := p.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("chat poller started", slog.Duration("interval", interval))
	for {
		live, err := p.Client.IsLive(ctx)
		if err != nil {
			slog.Warn("live check failed", slog.Any("err", err))
		} else if !live {
			slog.Info("stream no longer live; stopping chat poller")
			return nil
		} else {
			msgs, err := p.Client.FetchMessages(ctx)
			if err != nil {
				slog.Warn("chat fetch failed", slog.Any("err", err))
			}
			for _, m := range msgs {
				select {
				case events <- bot.Event{AuthorName: m.AuthorName, AuthorID: m.AuthorID, Text: m.Text}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
