package conversation

import "strings"

// Command prefix and the built-in command names.
const (
	CommandPrefix = "/"

	CommandSearch = "recherche"
	CommandQuit   = "quitter"
	CommandHelp   = "aide"

	// ExitKeyword leaves search mode when typed without the prefix.
	ExitKeyword = CommandQuit
)

// Command is a message starting with CommandPrefix.
type Command struct {
	Name string // lower-cased text right after the prefix, compared to command names
	Text string // trimmed text with the user's casing, used as a search query
}

// ParseCommand reports whether message is a command and splits it.
func ParseCommand(message string) (Command, bool) {
	trimmed := strings.TrimSpace(message)
	if !strings.HasPrefix(trimmed, CommandPrefix) {
		return Command{}, false
	}
	// "/ aide" is not the help command, it searches for "aide"
	rest := trimmed[len(CommandPrefix):]
	return Command{
		Name: strings.ToLower(rest),
		Text: strings.TrimSpace(rest),
	}, true
}

// IsEmpty returns true for a bare prefix.
func (c Command) IsEmpty() bool {
	return c.Text == ""
}
