package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"maker-systemv1/internal/model"
)

// SelectTier picks the lowest risk tier whose max leverage covers the
// requested leverage.
func SelectTier(tiers []model.LeverageTier, leverage float64) (model.LeverageTier, error) {
	candidates := make([]model.LeverageTier, 0, len(tiers))
	for _, t := range tiers {
		if t.MaxLeverage >= leverage {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return model.LeverageTier{}, fmt.Errorf("no tier covers leverage %v", leverage)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].MaxLeverage < candidates[j].MaxLeverage
	})
	return candidates[0], nil
}

// EnsureLeverage sets the instrument's leverage, clamped to the
// market's maximum. Venues that gate leverage behind risk-limit tiers
// get the covering tier applied instead of a plain leverage change.
// "Not modified" responses from the venue are tolerated.
func EnsureLeverage(ctx context.Context, client model.ExchangeClient, ad Adapter,
	m model.Market, leverage float64, log *slog.Logger) error {

	if !ad.SupportsLeverage() {
		log.Debug("leverage not supported, skip", "exchange", ad.ID())
		return nil
	}

	lev := leverage
	if m.MaxLeverage > 0 {
		lev = math.Min(lev, m.MaxLeverage)
	}

	if ad.RequiresLeverageTiers() {
		tiers, err := client.FetchLeverageTiers(ctx, m.Symbol)
		if err != nil {
			return fmt.Errorf("fetch leverage tiers %s: %w", m.Symbol, err)
		}
		tier, err := SelectTier(tiers, lev)
		if err != nil {
			return fmt.Errorf("select tier %s: %w", m.Symbol, err)
		}
		log.Debug("applying risk tier", "symbol", m.Symbol, "tier", tier.Tier, "max_leverage", tier.MaxLeverage)
		if err := client.SetRiskLimitLevel(ctx, m.Symbol, tier.Tier); err != nil {
			return fmt.Errorf("set risk limit %s: %w", m.Symbol, err)
		}
		return nil
	}

	if err := client.SetLeverage(ctx, m.Symbol, lev); err != nil {
		if strings.Contains(err.Error(), "leverage not modified") {
			return nil
		}
		return fmt.Errorf("set leverage %s: %w", m.Symbol, err)
	}
	return nil
}
