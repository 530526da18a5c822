package billing

// PlanTier is the internal subscription tier a processor price resolves to.
type PlanTier string

const (
	PlanMonthly   PlanTier = "monthly"
	PlanQuarterly PlanTier = "quarterly"
	PlanYearly    PlanTier = "yearly"
	PlanNone      PlanTier = "none"
)

// PlanResolver maps processor price IDs to internal plan tiers. The table is
// fixed at construction time and loaded from configuration, never hardcoded.
// An unknown price is an error; defaulting to a tier would mask a
// misconfigured price table.
type PlanResolver struct {
	table map[string]PlanTier
}

func NewPlanResolver(table map[string]PlanTier) *PlanResolver {
	copied := make(map[string]PlanTier, len(table))
	for priceID, plan := range table {
		if priceID == "" || plan == PlanNone {
			continue
		}
		copied[priceID] = plan
	}
	return &PlanResolver{table: copied}
}

func (r *PlanResolver) Resolve(priceID string) (PlanTier, error) {
	plan, ok := r.table[priceID]
	if !ok {
		return PlanNone, ErrUnknownPrice
	}
	return plan, nil
}

// Size reports how many price IDs are configured. Used at startup to refuse
// to boot with an empty table.
func (r *PlanResolver) Size() int {
	return len(r.table)
}
