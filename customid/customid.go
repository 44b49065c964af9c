// Package customid encodes and decodes the custom IDs carried by buttons and
// modals. Every ID is parsed once into a typed ID; anything that does not
// parse is rejected before routing.
package customid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindTicketCreate
	KindTicketClaim
	KindTicketClose
	KindRatingService
	KindRatingStaff
	KindSpamUnban
	KindSetup
	KindGiveawayJoin
	KindCloseReasonModal
	KindInvoiceModal
)

func (k Kind) String() string {
	switch k {
	case KindTicketCreate:
		return "ticket_create"
	case KindTicketClaim:
		return "ticket_claim"
	case KindTicketClose:
		return "ticket_close"
	case KindRatingService:
		return "rating_service"
	case KindRatingStaff:
		return "rating_staff"
	case KindSpamUnban:
		return "spam_unban"
	case KindSetup:
		return "setup"
	case KindGiveawayJoin:
		return "giveaway_join"
	case KindCloseReasonModal:
		return "close_reason_modal"
	case KindInvoiceModal:
		return "invoice_modal"
	}
	return "unknown"
}

// ID is the decoded form. Only the fields relevant to Kind are set.
type ID struct {
	Kind       Kind
	TicketID   string
	Category   string
	Score      int
	UserID     string
	Step       string
	GiveawayID string
}

var ErrMalformed = errors.New("malformed custom id")

func TicketCreate(category string) string   { return "ticket:create:" + category }
func TicketClaim(ticketID string) string    { return "ticket:claim:" + ticketID }
func TicketClose(ticketID string) string    { return "ticket:close:" + ticketID }
func SpamUnban(userID string) string        { return "spam:unban:" + userID }
func Setup(step string) string              { return "setup:" + step }
func GiveawayJoin(giveawayID string) string { return "giveaway:join:" + giveawayID }
func CloseReasonModal(ticketID string) string {
	return "modal:close:" + ticketID
}
func InvoiceModal(category string) string { return "modal:invoice:" + category }

func RatingService(ticketID string, score int) string {
	return fmt.Sprintf("rating:service:%s:%d", ticketID, score)
}

func RatingStaff(ticketID string, score int) string {
	return fmt.Sprintf("rating:staff:%s:%d", ticketID, score)
}

// Parse decodes raw into an ID.
func Parse(raw string) (ID, error) {
	parts := strings.Split(raw, ":")
	bad := func() (ID, error) { return ID{}, fmt.Errorf("%w: %q", ErrMalformed, raw) }

	switch {
	case len(parts) == 3 && parts[0] == "ticket" && parts[2] != "":
		switch parts[1] {
		case "create":
			return ID{Kind: KindTicketCreate, Category: parts[2]}, nil
		case "claim":
			return ID{Kind: KindTicketClaim, TicketID: parts[2]}, nil
		case "close":
			return ID{Kind: KindTicketClose, TicketID: parts[2]}, nil
		}

	case len(parts) == 4 && parts[0] == "rating" && parts[2] != "":
		score, err := strconv.Atoi(parts[3])
		if err != nil || score < 1 || score > 5 {
			return bad()
		}
		switch parts[1] {
		case "service":
			return ID{Kind: KindRatingService, TicketID: parts[2], Score: score}, nil
		case "staff":
			return ID{Kind: KindRatingStaff, TicketID: parts[2], Score: score}, nil
		}

	case len(parts) == 3 && parts[0] == "spam" && parts[1] == "unban" && parts[2] != "":
		return ID{Kind: KindSpamUnban, UserID: parts[2]}, nil

	case len(parts) == 2 && parts[0] == "setup" && parts[1] != "":
		return ID{Kind: KindSetup, Step: parts[1]}, nil

	case len(parts) == 3 && parts[0] == "giveaway" && parts[1] == "join" && parts[2] != "":
		return ID{Kind: KindGiveawayJoin, GiveawayID: parts[2]}, nil

	case len(parts) == 3 && parts[0] == "modal" && parts[2] != "":
		switch parts[1] {
		case "close":
			return ID{Kind: KindCloseReasonModal, TicketID: parts[2]}, nil
		case "invoice":
			return ID{Kind: KindInvoiceModal, Category: parts[2]}, nil
		}
	}
	return bad()
}
