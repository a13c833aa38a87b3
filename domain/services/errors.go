package services

import "errors"

var (
	// ErrWrongChannel rejects a music command sent outside the order channel
	ErrWrongChannel = errors.New("wrong channel was used")

	// ErrGuildNotRegistered is returned when a guild has no settings row
	ErrGuildNotRegistered = errors.New("guild is not registered")

	ErrUnknownChannel   = errors.New("channel does not exist in this guild")
	ErrUnknownRole      = errors.New("role does not exist in this guild")
	ErrInvalidReference = errors.New("invalid channel or role id")
	ErrEmptyDisplayName = errors.New("display name must not be empty")
)
