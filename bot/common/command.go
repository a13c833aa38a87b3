package common

import (
	"strings"

	"github.com/disgoorg/snowflake/v2"
)

// Command is a prefixed text command received in a guild channel or by DM
type Command struct {
	GuildID   snowflake.ID // Zero for direct messages
	ChannelID snowflake.ID
	AuthorID  snowflake.ID
	Name      string
	Args      string // Everything after the name, trimmed
}

// IsDirect reports whether the command arrived by direct message
func (c Command) IsDirect() bool {
	return c.GuildID == 0
}

// ParseCommand splits "<prefix><name> <args>". ok is false when content does
// not start with prefix or names nothing.
func ParseCommand(prefix, content string) (name, args string, ok bool) {
	content = strings.TrimSpace(content)
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", "", false
	}

	rest := content[len(prefix):]
	name, args, _ = strings.Cut(rest, " ")
	if name == "" || strings.ContainsAny(name, "\t\n") {
		return "", "", false
	}
	return strings.ToLower(name), strings.TrimSpace(args), true
}

// ParseID accepts a raw snowflake or a channel, role or user mention
func ParseID(arg string) (snowflake.ID, error) {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "<") && strings.HasSuffix(arg, ">") {
		arg = strings.TrimSuffix(arg, ">")
		for _, p := range []string{"<#", "<@&", "<@!", "<@"} {
			if strings.HasPrefix(arg, p) {
				arg = strings.TrimPrefix(arg, p)
				break
			}
		}
	}
	return snowflake.Parse(arg)
}
