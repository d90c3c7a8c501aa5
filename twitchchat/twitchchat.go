// Package twitchchat mirrors a Twitch channel's chat into the bot's event
// stream, so commands typed on the Twitch side of a simulcast reach the same
// state machines. Replies still go out through the YouTube messenger only.
package twitchchat

import (
	"context"
	"log/slog"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/sunniebot/studybot/bot"
)

// Mirror connects to one Twitch channel and forwards messages as events.
type Mirror struct {
	Channel  string
	Username string
	OAuth    string
}

// Run connects and forwards every chat line until ctx is cancelled. Twitch
// user ids get a "tw:" prefix so they never collide with YouTube channel ids
// in the row store.
func (m *Mirror) Run(ctx context.Context, events chan<- bot.Event) {
	if m.Channel == "" || m.Username == "" || m.OAuth == "" {
		slog.Info("twitch mirror creds not set; skipping")
		return
	}
	client := twitch.NewClient(m.Username, m.OAuth)

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		ev := bot.Event{
			AuthorName: msg.User.DisplayName,
			AuthorID:   "tw:" + msg.User.ID,
			Text:       msg.Message,
		}
		if ev.AuthorName == "" {
			ev.AuthorName = msg.User.Name
		}
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		client.Disconnect()
		close(done)
	}()

	client.Join(m.Channel)
	slog.Info("twitch mirror connecting", slog.String("channel", m.Channel))
	if err := client.Connect(); err != nil {
		slog.Error("twitch mirror connect error", slog.Any("err", err))
	}
	<-done
}
