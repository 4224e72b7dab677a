package domain

// CommandType classifies what the user wants the session to do.
type CommandType int

const (
	CommandUnknown CommandType = iota
	CommandCheck               // toggle an ingredient, payload is the 1-based number
	CommandStartCooking
	CommandNext
	CommandBack
	CommandTimer // payload is minutes
	CommandStopTimer
	CommandResetTimer
	CommandAcknowledge
	CommandRate // payload is "stars [comment]"
	CommandDecline
	CommandPhoto // payload is a file path
	CommandSkip
	CommandRetry
	CommandChangePhoto
	CommandStatus
	CommandHelp
	CommandQuit
)

// String returns a human-readable command type.
func (c CommandType) String() string {
	for name, t := range commandNames {
		if t == c {
			return name
		}
	}
	return "unknown"
}

// Command represents a parsed user action.
type Command struct {
	Type    CommandType
	Payload string
}

// commandNames maps snake_case names to CommandType values.
var commandNames = map[string]CommandType{
	"check":         CommandCheck,
	"start_cooking": CommandStartCooking,
	"next":          CommandNext,
	"back":          CommandBack,
	"timer":         CommandTimer,
	"stop_timer":    CommandStopTimer,
	"reset_timer":   CommandResetTimer,
	"acknowledge":   CommandAcknowledge,
	"rate":          CommandRate,
	"decline":       CommandDecline,
	"photo":         CommandPhoto,
	"skip":          CommandSkip,
	"retry":         CommandRetry,
	"change_photo":  CommandChangePhoto,
	"status":        CommandStatus,
	"help":          CommandHelp,
	"quit":          CommandQuit,
}

// CommandFromString converts a snake_case command name to a CommandType.
// Returns CommandUnknown for unrecognized names.
func CommandFromString(name string) CommandType {
	if t, ok := commandNames[name]; ok {
		return t
	}
	return CommandUnknown
}
