// Package events provides event types and utilities for the bothive event system.
package events

// Event types for bot process lifecycle
const (
	BotStarted = "bot.started"
	BotStopped = "bot.stopped"
	BotExited  = "bot.exited"
	BotFailed  = "bot.failed"
)

// Event types for user accounts
const (
	UserCreated = "user.created"
	UserUpdated = "user.updated"
)

// SubjectBotAll matches every bot lifecycle subject.
const SubjectBotAll = "bot.>"
