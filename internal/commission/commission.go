package commission

import (
	"github.com/shopspring/decimal"

	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
)

// Commission rates by subscription plan, as percentages of the vendor
// subtotal. Unknown plans fall back to the starter rate.
var planRates = map[enums.SubscriptionPlan]decimal.Decimal{
	enums.PlanStarter:      decimal.NewFromInt(15),
	enums.PlanProfessional: decimal.NewFromInt(10),
	enums.PlanEnterprise:   decimal.NewFromInt(5),
}

var hundred = decimal.NewFromInt(100)

// RateForPlan returns the commission percentage for the plan.
func RateForPlan(plan enums.SubscriptionPlan) decimal.Decimal {
	if rate, ok := planRates[plan]; ok {
		return rate
	}
	return planRates[enums.PlanStarter]
}

// Split divides a vendor subtotal into the platform commission and the
// vendor's net amount. Both legs are rounded to two decimal places and the
// net leg absorbs the rounding remainder so commission + net == subtotal.
func Split(subtotal decimal.Decimal, plan enums.SubscriptionPlan) (commission, net decimal.Decimal) {
	rate := RateForPlan(plan)
	commission = subtotal.Mul(rate).Div(hundred).Round(2)
	net = subtotal.Sub(commission)
	return commission, net
}
