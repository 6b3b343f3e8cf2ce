package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscription_HasActiveAccess(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name string
		sub  Subscription
		want bool
	}{
		{
			name: "active with future period end",
			sub:  Subscription{Status: StatusActive, CurrentPeriodEnd: &future},
			want: true,
		},
		{
			name: "active without period end",
			sub:  Subscription{Status: StatusActive},
			want: true,
		},
		{
			name: "active with expired period",
			sub:  Subscription{Status: StatusActive, CurrentPeriodEnd: &past},
			want: false,
		},
		{
			name: "trialing with future trial end",
			sub:  Subscription{Status: StatusTrialing, TrialEnd: &future},
			want: true,
		},
		{
			name: "trialing with expired trial",
			sub:  Subscription{Status: StatusTrialing, TrialEnd: &past},
			want: false,
		},
		{
			name: "trialing without trial end",
			sub:  Subscription{Status: StatusTrialing},
			want: false,
		},
		{
			name: "past due never grants access",
			sub:  Subscription{Status: StatusPastDue, CurrentPeriodEnd: &future},
			want: false,
		},
		{
			name: "canceled never grants access",
			sub:  Subscription{Status: StatusCanceled, CurrentPeriodEnd: &future},
			want: false,
		},
		{
			name: "incomplete never grants access",
			sub:  Subscription{Status: StatusIncomplete},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sub.HasActiveAccess(now))
		})
	}
}
