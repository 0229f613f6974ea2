package model

import "github.com/shopspring/decimal"

// PlanFeatures is the feature set a subscription tier unlocks. Resolved once
// per request through FeaturesFor; no dynamic dispatch.
type PlanFeatures struct {
	Name           string
	MonthlyPrice   decimal.Decimal
	ProductLimit   int
	SaleFeePercent int
	Coupons        bool
	CartRecovery   bool
	AutoPayment    bool
	CarrierRates   bool // distance-priced shipping instead of local options
	Team           bool // sub-accounts and activity logs
}

var planTable = map[PlanType]PlanFeatures{
	PlanFree: {
		Name:           "Free",
		MonthlyPrice:   decimal.Zero,
		ProductLimit:   10,
		SaleFeePercent: 10,
	},
	PlanPro: {
		Name:           "Pro",
		MonthlyPrice:   decimal.NewFromFloat(19.99),
		ProductLimit:   30,
		SaleFeePercent: 5,
		AutoPayment:    true,
	},
	PlanBusiness: {
		Name:         "Business",
		MonthlyPrice: decimal.NewFromFloat(39.99),
		ProductLimit: 9999,
		Coupons:      true,
		CartRecovery: true,
		AutoPayment:  true,
		CarrierRates: true,
	},
	PlanProfessional: {
		Name:         "Profissional",
		MonthlyPrice: decimal.NewFromFloat(140.00),
		ProductLimit: 9999,
		Coupons:      true,
		CartRecovery: true,
		AutoPayment:  true,
		CarrierRates: true,
		Team:         true,
	},
}

// FeaturesFor returns the feature set for a plan tier. Unknown tiers resolve
// to Free.
func FeaturesFor(plan PlanType) PlanFeatures {
	if f, ok := planTable[plan]; ok {
		return f
	}
	return planTable[PlanFree]
}
