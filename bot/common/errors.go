package common

import (
	"errors"
	"fmt"

	"warden/domain/interfaces"

	"github.com/disgoorg/snowflake/v2"
	log "github.com/sirupsen/logrus"
)

// GenericFailureMessage is shown when a command fails for reasons the user cannot fix
const GenericFailureMessage = "❌ Something went wrong. Please try again later."

// BotError represents a structured error with user-facing and internal messages
type BotError struct {
	UserMessage string      // Message shown to Discord user
	LogMessage  string      // Internal message for logging
	Err         error       // Underlying error
	Context     interface{} // Additional context for logging
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.LogMessage, e.Err)
	}
	return e.LogMessage
}

// Unwrap returns the underlying error
func (e *BotError) Unwrap() error {
	return e.Err
}

// NewUserError creates an error for user-caused issues (wrong channel, bad argument, etc)
func NewUserError(userMessage string, logMessage string) *BotError {
	return &BotError{
		UserMessage: userMessage,
		LogMessage:  logMessage,
	}
}

// NewSystemError creates an error for system issues (database, unexpected state, etc)
func NewSystemError(err error, logMessage string) *BotError {
	return &BotError{
		UserMessage: GenericFailureMessage,
		LogMessage:  logMessage,
		Err:         err,
	}
}

// HandleError logs err and answers the command in its channel
func HandleError(transport interfaces.ChatTransport, cmd Command, err error) {
	fields := log.Fields{
		"guild_id":   cmd.GuildID,
		"channel_id": cmd.ChannelID,
		"user_id":    cmd.AuthorID,
		"command":    cmd.Name,
	}

	message := GenericFailureMessage
	var botErr *BotError
	if errors.As(err, &botErr) {
		fields["error"] = botErr.Error()
		fields["user_message"] = botErr.UserMessage
		fields["context"] = botErr.Context
		if botErr.Err == nil {
			log.WithFields(fields).Info(botErr.LogMessage)
		} else {
			log.WithFields(fields).Error(botErr.LogMessage)
		}
		message = botErr.UserMessage
	} else {
		fields["error"] = err.Error()
		log.WithFields(fields).Error("Unexpected error in bot command")
	}

	Reply(transport, cmd.ChannelID, message)
}

// Reply sends text to channelID, logging failures
func Reply(transport interfaces.ChatTransport, channelID snowflake.ID, text string) {
	if err := transport.SendMessage(channelID, text); err != nil {
		log.WithFields(log.Fields{
			"channel_id": channelID,
			"error":      err,
		}).Warn("Failed to send reply")
	}
}
