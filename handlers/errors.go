package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"storefront-bot/config"
	"storefront-bot/lang"
	"storefront-bot/storage"
	"storefront-bot/storefront"
	"storefront-bot/tickets"

	"github.com/bwmarrin/discordgo"
)

var (
	ErrNotWhitelisted   = errors.New("caller is not whitelisted for this command")
	ErrNotTicketChannel = errors.New("not a ticket channel")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotConfigured    = errors.New("guild is not configured")
)

// Class is the user-facing failure category of an error.
type Class int

const (
	ClassInternal Class = iota
	ClassPermission
	ClassValidation
	ClassNotFound
	ClassAlreadyProcessed
	ClassExternal
	ClassPlatform
)

func (c Class) String() string {
	switch c {
	case ClassPermission:
		return "permission_denied"
	case ClassValidation:
		return "validation"
	case ClassNotFound:
		return "not_found"
	case ClassAlreadyProcessed:
		return "already_processed"
	case ClassExternal:
		return "external_service"
	case ClassPlatform:
		return "platform"
	}
	return "internal"
}

// Classify maps err onto the failure taxonomy used for replies and metrics.
func Classify(err error) Class {
	var apiErr *storefront.APIError
	var restErr *discordgo.RESTError
	switch {
	case err == nil:
		return ClassInternal
	case errors.Is(err, ErrNotWhitelisted), errors.Is(err, tickets.ErrPermission):
		return ClassPermission
	case errors.Is(err, tickets.ErrValidation), errors.Is(err, ErrInvalidInput), errors.Is(err, config.ErrUnknownKey):
		return ClassValidation
	case errors.Is(err, tickets.ErrNotFound), errors.Is(err, storage.ErrNotFound), errors.Is(err, ErrNotTicketChannel):
		return ClassNotFound
	case errors.Is(err, tickets.ErrAlreadyProcessed):
		return ClassAlreadyProcessed
	case errors.As(err, &apiErr):
		return ClassExternal
	case errors.As(err, &restErr):
		return ClassPlatform
	}
	return ClassInternal
}

// userError carries the exact text to show while still classifying as class.
type userError struct {
	msg   string
	class error
}

func (e *userError) Error() string        { return e.msg }
func (e *userError) Is(target error) bool { return target == e.class }

func invalid(msg string) error { return &userError{msg: msg, class: ErrInvalidInput} }

// Message renders the ephemeral reply text for err.
func Message(err error) string {
	var ue *userError
	var dup *tickets.DuplicateOpenTicketError
	var apiErr *storefront.APIError
	var restErr *discordgo.RESTError

	switch {
	case errors.As(err, &ue):
		return ue.msg
	case errors.As(err, &dup):
		return lang.T("ticket_duplicate", "channel", dup.Existing.ChannelID)
	case errors.Is(err, ErrNotWhitelisted):
		return lang.T("no_permission")
	case errors.Is(err, ErrNotConfigured):
		return lang.T("not_configured")
	case errors.Is(err, ErrNotTicketChannel), errors.Is(err, tickets.ErrNotFound):
		return lang.T("ticket_not_found")
	case errors.Is(err, tickets.ErrAlreadyClosed):
		return lang.T("ticket_already_closed")
	case errors.Is(err, tickets.ErrClosePending):
		return lang.T("ticket_close_pending")
	case errors.Is(err, tickets.ErrNotTicketOwner):
		return lang.T("ticket_not_owner")
	case errors.Is(err, tickets.ErrOutOfOrderRating):
		return lang.T("ticket_out_of_order")
	case errors.Is(err, tickets.ErrAlreadyRated):
		return lang.T("ticket_already_rated")
	case errors.Is(err, tickets.ErrNotPendingClose):
		return lang.T("ticket_not_pending")
	case errors.Is(err, tickets.ErrReasonRequired):
		return lang.T("ticket_reason_required")
	case errors.Is(err, tickets.ErrNotAuthorized):
		return lang.T("ticket_not_authorized")
	case errors.Is(err, config.ErrUnknownKey):
		return lang.T("config_unknown_key", "key", strings.TrimPrefix(err.Error(), config.ErrUnknownKey.Error()+": "), "keys", strings.Join(config.Keys(), ", "))
	case errors.As(err, &apiErr):
		return lang.T("external_service_error", "status", strconv.Itoa(apiErr.Status), "message", apiErr.Message)
	case errors.As(err, &restErr):
		return platformMessage(restErr)
	}

	switch Classify(err) {
	case ClassValidation:
		return err.Error()
	case ClassPermission:
		return lang.T("no_permission")
	}
	return lang.T("generic_error")
}

// platformMessage translates the API failures users can act on and passes
// anything else through.
func platformMessage(e *discordgo.RESTError) string {
	if e.Message != nil {
		if e.Message.Code == discordgo.ErrCodeMissingPermissions {
			if strings.Contains(strings.ToLower(e.Message.Message), "hierarchy") {
				return lang.T("platform_role_hierarchy")
			}
			return lang.T("platform_missing_permissions")
		}
		if strings.Contains(strings.ToLower(e.Message.Message), "hierarchy") {
			return lang.T("platform_role_hierarchy")
		}
		if e.Message.Message != "" {
			return e.Message.Message
		}
	}
	if e.Response != nil && e.Response.StatusCode == http.StatusForbidden {
		return lang.T("platform_missing_permissions")
	}
	return e.Error()
}
