package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// Help is the long form shown by "/help <name>"; Description is used when empty.
	Help      string
	AdminOnly bool
	Hidden    bool
	Aliases   []string
}

// HelpText returns the long description of the command.
func (c Command) HelpText() string {
	if c.Help != "" {
		return c.Help
	}
	return c.Description
}
