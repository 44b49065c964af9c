package customid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw  string
		want ID
	}{
		{TicketCreate("Purchase"), ID{Kind: KindTicketCreate, Category: "Purchase"}},
		{TicketClaim("TKT-0001"), ID{Kind: KindTicketClaim, TicketID: "TKT-0001"}},
		{TicketClose("TKT-0001"), ID{Kind: KindTicketClose, TicketID: "TKT-0001"}},
		{RatingService("TKT-0002", 5), ID{Kind: KindRatingService, TicketID: "TKT-0002", Score: 5}},
		{RatingStaff("TKT-0002", 1), ID{Kind: KindRatingStaff, TicketID: "TKT-0002", Score: 1}},
		{SpamUnban("123"), ID{Kind: KindSpamUnban, UserID: "123"}},
		{Setup("roles"), ID{Kind: KindSetup, Step: "roles"}},
		{GiveawayJoin("gw1"), ID{Kind: KindGiveawayJoin, GiveawayID: "gw1"}},
		{CloseReasonModal("TKT-0003"), ID{Kind: KindCloseReasonModal, TicketID: "TKT-0003"}},
		{InvoiceModal("Replaces"), ID{Kind: KindInvoiceModal, Category: "Replaces"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"ticket_close_btn",
		"ticket:create:",
		"ticket:reopen:TKT-0001",
		"rating:service:TKT-0001:0",
		"rating:service:TKT-0001:6",
		"rating:service:TKT-0001:x",
		"rating:overall:TKT-0001:3",
		"modal:other:x",
		"spam:ban:1",
	} {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrMalformed, raw)
	}
}
