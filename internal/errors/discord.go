package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// MapDiscordError classifies errors returned by the Discord REST client and state cache.
// Errors that carry no Discord-specific information fall back to the textual mapper.
func MapDiscordError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, discordgo.ErrStateNotFound) {
		return fmt.Errorf("%v: %w", err, ErrNotFound)
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil {
			switch restErr.Message.Code {
			case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
				return fmt.Errorf("%w: %w", err, ErrPermissionDenied)
			case discordgo.ErrCodeUnknownRole, discordgo.ErrCodeUnknownMember,
				discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownGuild:
				return fmt.Errorf("%w: %w", err, ErrNotFound)
			}
		}
		if restErr.Response != nil {
			switch status := restErr.Response.StatusCode; {
			case status == http.StatusForbidden, status == http.StatusUnauthorized:
				return fmt.Errorf("%w: %w", err, ErrPermissionDenied)
			case status == http.StatusNotFound:
				return fmt.Errorf("%w: %w", err, ErrNotFound)
			case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
				return fmt.Errorf("%w: %w", err, ErrTransient)
			case status == http.StatusBadRequest:
				return fmt.Errorf("%w: %w", err, ErrInvalidInput)
			}
		}
	}

	return NewDefaultErrorMapper().MapError(err)
}
