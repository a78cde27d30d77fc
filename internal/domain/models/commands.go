package models

import "strings"

// CommandType enumerates supported staff command categories.
type CommandType string

const (
	CommandWithdraw CommandType = "withdraw"
	CommandStock    CommandType = "stock"
	CommandAlerts   CommandType = "alerts"
	CommandHelp     CommandType = "help"
	CommandUnknown  CommandType = "unknown"
)

// Command represents a parsed staff instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages.
// Arguments keep their original case since lot codes are case sensitive.
func ParseCommand(message string) Command {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return Command{Type: CommandUnknown, Raw: message}
	}

	tokens := strings.Fields(trimmed)
	cmd := Command{Raw: message}

	head := strings.ToLower(strings.TrimPrefix(tokens[0], "/"))
	switch head {
	case string(CommandWithdraw), "w":
		cmd.Type = CommandWithdraw
	case string(CommandStock), "s":
		cmd.Type = CommandStock
	case string(CommandAlerts):
		cmd.Type = CommandAlerts
	case string(CommandHelp):
		cmd.Type = CommandHelp
	default:
		cmd.Type = CommandUnknown
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
