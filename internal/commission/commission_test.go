package commission

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
)

func TestRateForPlan(t *testing.T) {
	tests := []struct {
		plan enums.SubscriptionPlan
		want string
	}{
		{enums.PlanStarter, "15"},
		{enums.PlanProfessional, "10"},
		{enums.PlanEnterprise, "5"},
		{enums.SubscriptionPlan("legacy"), "15"},
		{enums.SubscriptionPlan(""), "15"},
	}
	for _, tt := range tests {
		got := RateForPlan(tt.plan)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Fatalf("RateForPlan(%q) = %s, want %s", tt.plan, got, tt.want)
		}
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name           string
		subtotal       string
		plan           enums.SubscriptionPlan
		wantCommission string
		wantNet        string
	}{
		{"starter", "1000", enums.PlanStarter, "150", "850"},
		{"professional", "2000", enums.PlanProfessional, "200", "1800"},
		{"enterprise", "500", enums.PlanEnterprise, "25", "475"},
		{"unknown plan falls back", "100", enums.SubscriptionPlan("gold"), "15", "85"},
		{"rounding remainder goes to net", "33.33", enums.PlanStarter, "5", "28.33"},
		{"zero subtotal", "0", enums.PlanStarter, "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subtotal := decimal.RequireFromString(tt.subtotal)
			commission, net := Split(subtotal, tt.plan)
			if !commission.Equal(decimal.RequireFromString(tt.wantCommission)) {
				t.Fatalf("commission = %s, want %s", commission, tt.wantCommission)
			}
			if !net.Equal(decimal.RequireFromString(tt.wantNet)) {
				t.Fatalf("net = %s, want %s", net, tt.wantNet)
			}
			if !commission.Add(net).Equal(subtotal) {
				t.Fatalf("commission + net = %s, want %s", commission.Add(net), subtotal)
			}
		})
	}
}
