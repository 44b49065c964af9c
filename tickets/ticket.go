package tickets

import (
	"fmt"
	"strings"
	"time"
)

type Category string

const (
	CategoryReplaces       Category = "Replaces"
	CategoryFAQ            Category = "FAQ"
	CategoryPurchase       Category = "Purchase"
	CategoryPartner        Category = "Partner"
	CategoryPartnerManager Category = "PartnerManager"
)

// Categories is the fixed set offered on the ticket panel, in display order.
var Categories = []Category{
	CategoryPurchase,
	CategoryReplaces,
	CategoryFAQ,
	CategoryPartner,
	CategoryPartnerManager,
}

func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrValidation, s)
}

func (c Category) Label() string {
	switch c {
	case CategoryReplaces:
		return "Replacement"
	case CategoryPartnerManager:
		return "Partner Manager"
	}
	return string(c)
}

func (c Category) Emoji() string {
	switch c {
	case CategoryPurchase:
		return "🛒"
	case CategoryReplaces:
		return "🔁"
	case CategoryFAQ:
		return "❓"
	case CategoryPartner:
		return "🤝"
	case CategoryPartnerManager:
		return "📋"
	}
	return "🎫"
}

// NeedsInvoice reports whether creating a ticket asks for an invoice ID first.
func (c Category) NeedsInvoice() bool {
	return c == CategoryReplaces
}

type CloserType string

const (
	CloserUser   CloserType = "user"
	CloserStaff  CloserType = "staff"
	CloserOwner  CloserType = "owner"
	CloserSystem CloserType = "system"
)

// SystemCloser is recorded as ClosedBy when the sweep force-closes a ticket.
const SystemCloser = "System"

type State string

const (
	StateOpen                  State = "OPEN"
	StateAwaitingServiceRating State = "AWAITING_SERVICE_RATING"
	StateAwaitingStaffRating   State = "AWAITING_STAFF_RATING"
	StateFinalizing            State = "FINALIZING"
	StateClosed                State = "CLOSED"
)

type Ticket struct {
	ID        string    `json:"id"`
	Number    int       `json:"number"`
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Category  Category  `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	InvoiceID string    `json:"invoice_id,omitempty"`

	ClaimedBy string     `json:"claimed_by,omitempty"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`

	Closed       bool       `json:"closed"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	ClosedBy     string     `json:"closed_by,omitempty"`
	ClosedByType CloserType `json:"closed_by_type,omitempty"`
	CloseReason  string     `json:"close_reason,omitempty"`

	PendingClose           bool       `json:"pending_close"`
	ServiceRating          *int       `json:"service_rating"`
	StaffRating            *int       `json:"staff_rating"`
	RatingStartedAt        *time.Time `json:"rating_started_at,omitempty"`
	ServiceRatingMessageID string     `json:"service_rating_message_id,omitempty"`
	StaffRatingMessageID   string     `json:"staff_rating_message_id,omitempty"`

	ChannelDeleted bool `json:"channel_deleted,omitempty"`
}

func FormatID(n int) string {
	return fmt.Sprintf("TKT-%04d", n)
}

func (t *Ticket) State() State {
	switch {
	case t.Closed:
		return StateClosed
	case !t.PendingClose:
		return StateOpen
	case t.ServiceRating == nil:
		return StateAwaitingServiceRating
	case t.StaffRating == nil:
		return StateAwaitingStaffRating
	}
	return StateFinalizing
}

// Claimed reports whether a staff member has taken the ticket.
func (t *Ticket) Claimed() bool {
	return t.ClaimedBy != ""
}

// Handler is the staff member the creator is asked to rate.
func (t *Ticket) Handler() string {
	if t.ClaimedBy != "" {
		return t.ClaimedBy
	}
	return t.ClosedBy
}

func (t *Ticket) clone() *Ticket {
	c := *t
	if t.ClaimedAt != nil {
		v := *t.ClaimedAt
		c.ClaimedAt = &v
	}
	if t.ClosedAt != nil {
		v := *t.ClosedAt
		c.ClosedAt = &v
	}
	if t.RatingStartedAt != nil {
		v := *t.RatingStartedAt
		c.RatingStartedAt = &v
	}
	if t.ServiceRating != nil {
		v := *t.ServiceRating
		c.ServiceRating = &v
	}
	if t.StaffRating != nil {
		v := *t.StaffRating
		c.StaffRating = &v
	}
	return &c
}
