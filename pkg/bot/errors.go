package bot

import (
	"errors"
	"fmt"
	"time"

	"github.com/sipeed/cinebot/pkg/conversation"
	"github.com/sipeed/cinebot/pkg/movies"
	"github.com/sipeed/cinebot/pkg/ratelimit"
)

type BotError string

func (e BotError) Error() string { return string(e) }

const (
	ErrNoToken         BotError = "discord token is required"
	ErrUnknownCommand  BotError = "What??"
	ErrGuildOnly       BotError = "This command can only be used in a server."
	ErrDisabledCommand BotError = "This command is not available right now."
)

const genericFailure = "Something went wrong."

// UserMessage renders err as the text shown to the invoking user.
func UserMessage(err error) string {
	var exceeded *ratelimit.ExceededError
	if errors.As(err, &exceeded) {
		retry := exceeded.RetryAfter.Round(time.Second)
		if retry < time.Second {
			retry = time.Second
		}
		return fmt.Sprintf("You are being rate limited. Try again in %s.", retry)
	}

	var backendErr *conversation.BackendError
	if errors.As(err, &backendErr) {
		return conversation.FallbackReply
	}

	var convErr conversation.ConversationError
	if errors.As(err, &convErr) {
		return string(convErr)
	}
	var movieErr movies.MovieError
	if errors.As(err, &movieErr) {
		return string(movieErr)
	}
	var botErr BotError
	if errors.As(err, &botErr) {
		return string(botErr)
	}
	return genericFailure
}
