package ytchat

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/sunniebot/studybot/telemetry"
)

// Message is one incoming live chat message.
type Message struct {
	AuthorName string
	AuthorID   string
	Text       string
}

// Client wraps the YouTube Data API for a single live stream: resolving the
// active live chat, listing its messages and posting replies with credential
// rotation. Safe for use from multiple goroutines.
type Client struct {
	pool    *Pool
	videoID string
	opts    []option.ClientOption // extra client options (endpoint override in tests)

	mu         sync.Mutex
	liveChatID string
	pageToken  string
}

// NewClient builds a Client for the given stream.
func NewClient(pool *Pool, videoID string, opts ...option.ClientOption) (*Client, error) {
	if videoID == "" {
		return nil, fmt.Errorf("ytchat client: video id empty")
	}
	return &Client{pool: pool, videoID: videoID, opts: opts}, nil
}

// service builds a YouTube service bound to the given access token.
func (c *Client) service(ctx context.Context, token string) (*yt.Service, error) {
	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})),
	}, c.opts...)
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return svc, nil
}

// liveChat resolves and caches the active live chat id for the stream.
func (c *Client) liveChat(ctx context.Context, token string) (string, error) {
	c.mu.Lock()
	cached := c.liveChatID
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}
	svc, err := c.service(ctx, token)
	if err != nil {
		return "", err
	}
	resp, err := svc.Videos.List([]string{"liveStreamingDetails"}).Id(c.videoID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("resolve live chat: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].LiveStreamingDetails == nil || resp.Items[0].LiveStreamingDetails.ActiveLiveChatId == "" {
		return "", fmt.Errorf("video %s has no active live chat", c.videoID)
	}
	id := resp.Items[0].LiveStreamingDetails.ActiveLiveChatId
	c.mu.Lock()
	c.liveChatID = id
	c.mu.Unlock()
	return id, nil
}

// IsLive reports whether the stream still has an active live chat.
func (c *Client) IsLive(ctx context.Context) (bool, error) {
	token, err := c.pool.Token(ctx)
	if err != nil {
		return false, err
	}
	svc, err := c.service(ctx, token)
	if err != nil {
		return false, err
	}
	resp, err := svc.Videos.List([]string{"liveStreamingDetails"}).Id(c.videoID).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("live check: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].LiveStreamingDetails == nil {
		return false, nil
	}
	d := resp.Items[0].LiveStreamingDetails
	return d.ActiveLiveChatId != "" && d.ActualEndTime == "", nil
}

// FetchMessages lists live chat messages newer than the last call. The first
// call returns the current page and primes the page token.
func (c *Client) FetchMessages(ctx context.Context) ([]Message, error) {
	token, err := c.pool.Token(ctx)
	if err != nil {
		return nil, err
	}
	chatID, err := c.liveChat(ctx, token)
	if err != nil {
		return nil, err
	}
	svc, err := c.service(ctx, token)
	if err != nil {
		return nil, err
	}
	call := svc.LiveChatMessages.List(chatID, []string{"snippet", "authorDetails"}).Context(ctx)
	c.mu.Lock()
	if c.pageToken != "" {
		call = call.PageToken(c.pageToken)
	}
	c.mu.Unlock()
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	c.mu.Lock()
	c.pageToken = resp.NextPageToken
	c.mu.Unlock()
	out := make([]Message, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet == nil || item.AuthorDetails == nil {
			continue
		}
		out = append(out, Message{
			AuthorName: item.AuthorDetails.DisplayName,
			AuthorID:   item.AuthorDetails.ChannelId,
			Text:       item.Snippet.DisplayMessage,
		})
	}
	return out, nil
}

// Post sends a text message to the live chat. Recovery follows the send error
// class: an auth failure refreshes the active credential and retries once,
// further auth failures and rate limits rotate to the next pool entry. A full
// wrap of the pool without success drops the message.
func (c *Client) Post(ctx context.Context, text string) error {
	if !acquirePostSlot(ctx) {
		return ctx.Err()
	}
	defer releasePostSlot()

	refreshed := false
	attempts := c.pool.Size() + 1 // one in-place refresh plus a full rotation sweep
	var lastErr error
	for i := 0; i < attempts; i++ {
		token, err := c.pool.Token(ctx)
		if err != nil {
			lastErr = err
			if _, rerr := c.pool.Rotate(ctx); rerr != nil {
				lastErr = rerr
			}
			continue
		}
		if err := c.insert(ctx, token, text); err != nil {
			lastErr = err
			switch ClassifySendError(err) {
			case SendErrorAuth:
				if telemetry.SendRetries != nil {
					telemetry.SendRetries.Inc()
				}
				if !refreshed {
					refreshed = true
					_, _ = c.pool.Refresh(ctx)
					continue
				}
				_, _ = c.pool.Rotate(ctx)
			case SendErrorRateLimited:
				if telemetry.SendRetries != nil {
					telemetry.SendRetries.Inc()
				}
				_, _ = c.pool.Rotate(ctx)
			case SendErrorRetryable:
				continue
			default:
				return fmt.Errorf("post message: %w", err)
			}
			continue
		}
		if telemetry.RepliesPosted != nil {
			telemetry.RepliesPosted.Inc()
		}
		return nil
	}
	if telemetry.SendsDropped != nil {
		telemetry.SendsDropped.Inc()
	}
	return fmt.Errorf("post message: credential pool exhausted: %w", lastErr)
}

func (c *Client) insert(ctx context.Context, token, text string) error {
	chatID, err := c.liveChat(ctx, token)
	if err != nil {
		return err
	}
	svc, err := c.service(ctx, token)
	if err != nil {
		return err
	}
	msg := &yt.LiveChatMessage{
		Snippet: &yt.LiveChatMessageSnippet{
			LiveChatId: chatID,
			Type:       "textMessageEvent",
			TextMessageDetails: &yt.LiveChatTextMessageDetails{
				MessageText: text,
			},
		},
	}
	_, err = svc.LiveChatMessages.Insert([]string{"snippet"}, msg).Context(ctx).Do()
	return err
}
