package bot

import "strings"

// CommandKind identifies a recognized chat command.
type CommandKind int

const (
	NoMatch CommandKind = iota
	Hello
	Attend
	SessionStart
	SessionStop
	Rank
	Leaderboard
	TaskAdd
	TaskDone
	TaskPending
	TaskRemove
	TaskRecent
	GoalAdd
	GoalComplete
	Summary
	Remind
	Buddy
	Pomodoro
	Help
)

// Command is the parsed form of a chat message. Arg carries the text after a
// parameterized prefix, trimmed of leading/trailing whitespace only.
type Command struct {
	Kind CommandKind
	Arg  string
}

// Name returns the metric/log label for the command.
func (c Command) Name() string {
	switch c.Kind {
	case Hello:
		return "hello"
	case Attend:
		return "attend"
	case SessionStart:
		return "start"
	case SessionStop:
		return "stop"
	case Rank:
		return "rank"
	case Leaderboard:
		return "leaderboard"
	case TaskAdd:
		return "task_add"
	case TaskDone:
		return "task_done"
	case TaskPending:
		return "task_pending"
	case TaskRemove:
		return "task_remove"
	case TaskRecent:
		return "task_recent"
	case GoalAdd:
		return "goal_add"
	case GoalComplete:
		return "goal_complete"
	case Summary:
		return "summary"
	case Remind:
		return "remind"
	case Buddy:
		return "buddy"
	case Pomodoro:
		return "pomodoro"
	case Help:
		return "help"
	default:
		return "no_match"
	}
}

// exactCommands are matched case-insensitively against the whole message.
var exactCommands = []struct {
	token string
	kind  CommandKind
}{
	{"!hello", Hello},
	{"!attend", Attend},
	{"!start", SessionStart},
	{"!stop", SessionStop},
	{"!rank", Rank},
	{"!leaderboard", Leaderboard},
	{"!done", TaskDone},
	{"!pending", TaskPending},
	{"!remove", TaskRemove},
	{"!recent", TaskRecent},
	{"!goaldone", GoalComplete},
	{"!summary", Summary},
	{"!help", Help},
}

// prefixCommands carry an argument: everything after the prefix, trimmed once.
// Order matters; the first matching rule wins.
var prefixCommands = []struct {
	token string
	kind  CommandKind
}{
	{"!task ", TaskAdd},
	{"!goal ", GoalAdd},
	{"!remind ", Remind},
	{"!buddy", Buddy},
	{"!pomo", Pomodoro},
}

// Parse maps raw chat text to a Command. Unrecognized text yields NoMatch;
// the bot stays silent on it.
func Parse(raw string) Command {
	msg := strings.TrimSpace(raw)
	lower := strings.ToLower(msg)
	for _, rule := range exactCommands {
		if lower == rule.token {
			return Command{Kind: rule.kind}
		}
	}
	for _, rule := range prefixCommands {
		if strings.HasPrefix(lower, rule.token) {
			return Command{Kind: rule.kind, Arg: strings.TrimSpace(msg[len(rule.token):])}
		}
	}
	return Command{Kind: NoMatch}
}
