package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/valueobject"
)

// Recommendation priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// RetentionConfig enumerates every campaign and valuation option. Zero-valued
// fields are not defaults; use DefaultRetentionConfig and override.
type RetentionConfig struct {
	AnnualMarginRate          float64 `yaml:"annual_margin_rate"`
	ProductAnnualRevenue      float64 `yaml:"product_annual_revenue"`
	DiscountRate              float64 `yaml:"discount_rate"`
	ExpectedLifetimeYears     int     `yaml:"expected_lifetime_years"`
	CampaignCostPerCustomer   float64 `yaml:"campaign_cost_per_customer"`
	RetentionSuccessRate      float64 `yaml:"retention_success_rate"`
	HighValueBalance          float64 `yaml:"high_value_balance"`
	LowEngagementTransactions int     `yaml:"low_engagement_transactions"`
	MultiProductThreshold     int     `yaml:"multi_product_threshold"`
	NewCustomerTenure         int     `yaml:"new_customer_tenure"`
	LowCreditScore            int     `yaml:"low_credit_score"`
}

// DefaultRetentionConfig returns the stock campaign parameters.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		AnnualMarginRate:          0.02,
		ProductAnnualRevenue:      50,
		DiscountRate:              0.10,
		ExpectedLifetimeYears:     5,
		CampaignCostPerCustomer:   100,
		RetentionSuccessRate:      0.30,
		HighValueBalance:          50000,
		LowEngagementTransactions: 50,
		MultiProductThreshold:     3,
		NewCustomerTenure:         1,
		LowCreditScore:            600,
	}
}

// Recommendation is one suggested retention action.
type Recommendation struct {
	Action         string `json:"action"`
	Description    string `json:"description"`
	ExpectedImpact string `json:"expected_impact"`
	Priority       string `json:"priority"`
}

// RetentionAdvice is the playbook output for one customer.
type RetentionAdvice struct {
	Recommendations []Recommendation
	LifetimeValue   decimal.Decimal
	CampaignROI     decimal.Decimal
	ExpectedSaving  decimal.Decimal
}

// RetentionAdvisor turns a churn probability and customer profile into
// recommended actions and campaign economics.
type RetentionAdvisor struct {
	cfg RetentionConfig
}

// NewRetentionAdvisor creates an advisor.
func NewRetentionAdvisor(cfg RetentionConfig) *RetentionAdvisor {
	return &RetentionAdvisor{cfg: cfg}
}

// Config returns the advisor's configuration.
func (a *RetentionAdvisor) Config() RetentionConfig { return a.cfg }

// Advise builds the retention advice for a customer.
func (a *RetentionAdvisor) Advise(c model.CustomerRecord, probability float64) RetentionAdvice {
	clv := a.LifetimeValue(c)
	saving, roi := a.CampaignReturn(clv, probability)
	return RetentionAdvice{
		Recommendations: a.Recommend(c, probability),
		LifetimeValue:   clv,
		CampaignROI:     roi,
		ExpectedSaving:  saving,
	}
}

// LifetimeValue discounts the customer's annual value over the expected
// lifetime: sum over t of value / (1+r)^t.
func (a *RetentionAdvisor) LifetimeValue(c model.CustomerRecord) decimal.Decimal {
	annual := decimal.NewFromFloat(c.Balance).Mul(decimal.NewFromFloat(a.cfg.AnnualMarginRate)).
		Add(decimal.NewFromInt(int64(c.NumProducts)).Mul(decimal.NewFromFloat(a.cfg.ProductAnnualRevenue)))

	growth := decimal.NewFromInt(1).Add(decimal.NewFromFloat(a.cfg.DiscountRate))
	factor := decimal.NewFromInt(1)
	clv := decimal.Zero
	for t := 0; t < a.cfg.ExpectedLifetimeYears; t++ {
		factor = factor.Mul(growth)
		clv = clv.Add(annual.DivRound(factor, 8))
	}
	return clv.Round(2)
}

// CampaignReturn is the expected value saved by a retention campaign and its
// ROI, (saving - cost) / cost. ROI is zero when the campaign costs nothing.
func (a *RetentionAdvisor) CampaignReturn(clv decimal.Decimal, probability float64) (saving, roi decimal.Decimal) {
	saving = clv.Mul(decimal.NewFromFloat(probability)).
		Mul(decimal.NewFromFloat(a.cfg.RetentionSuccessRate)).
		Round(2)
	cost := decimal.NewFromFloat(a.cfg.CampaignCostPerCustomer)
	if cost.IsZero() {
		return saving, decimal.Zero
	}
	return saving, saving.Sub(cost).DivRound(cost, 4)
}

// Recommend lists actions ordered by priority.
func (a *RetentionAdvisor) Recommend(c model.CustomerRecord, probability float64) []Recommendation {
	var recs []Recommendation
	add := func(priority, action, description, impact string) {
		recs = append(recs, Recommendation{Action: action, Description: description, ExpectedImpact: impact, Priority: priority})
	}

	if valueobject.RiskCategoryFromProbability(probability).IsHigh() {
		add(PriorityHigh, "Personal retention call",
			"A relationship manager contacts the customer within 48 hours to address concerns.",
			"High: direct outreach recovers a large share of at-risk customers")
	}
	if !c.IsActiveMember {
		add(PriorityHigh, "Re-engagement campaign",
			"Targeted offers to bring the customer back to regular account activity.",
			"Medium: reactivation lowers churn likelihood")
		if c.HasCreditCard {
			add(PriorityMedium, "Card rewards activation",
				"Promote cashback and rewards on the dormant credit card.",
				"Medium: card usage builds daily engagement")
		}
	}
	if c.Transactions < a.cfg.LowEngagementTransactions {
		add(PriorityMedium, "Usage incentives",
			"Fee waivers or bonus interest tied to monthly transaction targets.",
			"Medium: frequent users churn less")
	}
	if c.NumProducts <= 1 {
		add(PriorityMedium, "Cross-sell bundle",
			"Offer a savings or card product bundled with preferential pricing.",
			"Medium: multi-product customers are stickier")
	} else if c.NumProducts >= a.cfg.MultiProductThreshold {
		add(PriorityMedium, "Product portfolio review",
			"Review the customer's products for overlap and unnecessary fees.",
			"Medium: simplifying the relationship removes friction")
	}
	if c.Balance >= a.cfg.HighValueBalance {
		add(PriorityHigh, "Premium benefits",
			"Upgrade to premium tier with dedicated support and better rates.",
			"High: protects a high-value relationship")
	}
	if c.Tenure <= a.cfg.NewCustomerTenure {
		add(PriorityMedium, "Onboarding follow-up",
			"Check in on the onboarding experience and highlight unused features.",
			"Medium: early churn is driven by poor onboarding")
	}
	if c.CreditScore < a.cfg.LowCreditScore {
		add(PriorityLow, "Financial wellness support",
			"Offer budgeting tools and credit improvement guidance.",
			"Low: builds long-term loyalty")
	}
	if len(recs) == 0 {
		add(PriorityLow, "Maintain standard engagement",
			"Keep the customer on the regular communication schedule.",
			"Low: customer shows no specific risk drivers")
	}

	sort.SliceStable(recs, func(i, j int) bool { return priorityRank(recs[i].Priority) < priorityRank(recs[j].Priority) })
	return recs
}

func priorityRank(p string) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}
