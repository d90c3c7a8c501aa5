package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sunniebot/studybot/announce"
	"github.com/sunniebot/studybot/buddy"
	"github.com/sunniebot/studybot/pomo"
	"github.com/sunniebot/studybot/progress"
	"github.com/sunniebot/studybot/remind"
	"github.com/sunniebot/studybot/telemetry"
)

const helpReply = "Commands: !hello !attend !start !stop !task <t> !done !pending !remove !recent " +
	"!goal <g> !goaldone !rank !leaderboard !summary !remind <n> min <msg> !buddy @name !pomo <min> [n] [break]"

// Bot is the command dispatcher: it consumes chat events sequentially, routes
// recognized commands to the feature services and posts their replies.
type Bot struct {
	Poster    Poster
	Progress  *progress.Service
	Buddy     *buddy.Service
	Remind    *remind.Scheduler
	Pomo      *pomo.Manager
	Announcer *announce.Announcer
}

// Run consumes events until the channel closes or the context is cancelled.
// Dispatch is strictly sequential; only reminder and pomodoro timers run
// concurrently with it.
func (b *Bot) Run(ctx context.Context, events <-chan Event) {
	slog.Info("bot dispatcher started")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				slog.Info("bot dispatcher: event channel closed")
				return
			}
			b.handle(ctx, ev)
		}
	}
}

func (b *Bot) handle(ctx context.Context, ev Event) {
	if telemetry.ChatMessagesSeen != nil {
		telemetry.ChatMessagesSeen.Inc()
	}
	if b.Announcer != nil {
		b.Announcer.BumpChat()
	}
	cmd := Parse(ev.Text)
	if cmd.Kind == NoMatch {
		return
	}
	telemetry.CountCommand(cmd.Name())

	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	log := telemetry.LoggerWithCorr(ctx).With(
		slog.String("command", cmd.Name()),
		slog.String("user", ev.AuthorName),
	)

	var reply string
	var err error
	telemetry.TimeFunc(telemetry.CommandDuration, func() {
		reply, err = b.dispatch(ctx, ev, cmd)
	})
	if err != nil {
		log.Error("command handler failed", slog.Any("err", err))
		reply = fmt.Sprintf("@%s that feature is unavailable right now — please try again later", ev.AuthorName)
	}
	if reply == "" {
		return
	}
	// RepliesPosted is counted by the chat client on successful insert, not here.
	if err := b.Poster.Post(ctx, reply); err != nil {
		log.Error("reply post failed", slog.Any("err", err))
		return
	}
	log.Info("command handled")
}

// dispatch routes a parsed command to its handler. A non-nil error means the
// row store was unreachable; the caller substitutes the generic reply.
func (b *Bot) dispatch(ctx context.Context, ev Event, cmd Command) (string, error) {
	name, id := ev.AuthorName, ev.AuthorID
	switch cmd.Kind {
	case Hello:
		return fmt.Sprintf("Hi @%s!", name), nil
	case Help:
		return helpReply, nil
	case Attend:
		return b.Progress.CheckIn(ctx, name, id)
	case SessionStart:
		return b.Progress.StartSession(ctx, name, id)
	case SessionStop:
		return b.Progress.StopSession(ctx, name, id)
	case Rank:
		return b.Progress.RankReply(ctx, name, id)
	case Leaderboard:
		return b.Progress.LeaderboardReply(ctx)
	case TaskAdd:
		return b.Progress.AddTask(ctx, name, id, cmd.Arg)
	case TaskDone:
		return b.Progress.CompleteTask(ctx, name, id)
	case TaskPending:
		return b.Progress.PendingTask(ctx, name, id)
	case TaskRemove:
		return b.Progress.RemoveTask(ctx, name, id)
	case TaskRecent:
		return b.Progress.RecentTasks(ctx, name, id)
	case GoalAdd:
		return b.Progress.AddGoal(ctx, name, id, cmd.Arg)
	case GoalComplete:
		return b.Progress.CompleteGoal(ctx, name, id)
	case Summary:
		return b.Progress.SummaryReply(ctx, name, id)
	case Remind:
		return b.Remind.Schedule(ctx, name, id, cmd.Arg)
	case Buddy:
		return b.Buddy.Handle(ctx, name, id, cmd.Arg)
	case Pomodoro:
		return b.Pomo.Handle(ctx, name, id, cmd.Arg)
	default:
		return "", nil
	}
}
