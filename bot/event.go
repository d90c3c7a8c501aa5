// Package bot owns the chat ingestion loop: it parses incoming chat events
// into commands and dispatches them to the feature services, posting replies
// back to the live chat.
package bot

import "context"

// Event is one chat message as delivered by a chat source (YouTube poller or
// Twitch mirror). Delivery is at-least-once; handlers are written to tolerate
// replays.
type Event struct {
	AuthorName string
	AuthorID   string
	Text       string
}

// Poster is the outbound side-effect: post a reply to the live chat.
type Poster interface {
	Post(ctx context.Context, text string) error
}
