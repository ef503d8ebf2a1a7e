package signal

import (
	"context"
	"time"

	"maker-systemv1/internal/model"
)

// Mock is an in-memory SignalSource that emits one constant long-BTC
// model plus a weight row for the engine's own portfolio model. Used
// when no signal store is configured.
type Mock struct {
	// PortfolioModel is the model id the engine reads weights from.
	PortfolioModel string
}

// NewMock returns a mock source for the given portfolio model id.
func NewMock(portfolioModel string) *Mock {
	return &Mock{PortfolioModel: portfolioModel}
}

// GetPositions always returns the current 5-minute-aligned snapshot.
func (m *Mock) GetPositions(_ context.Context, _ time.Time) ([]model.PositionRow, error) {
	t := time.Now().Truncate(300 * time.Second)
	return []model.PositionRow{
		{
			Model:     "model1",
			Timestamp: t,
			Positions: map[string]float64{"BTC": 1.0},
		},
		{
			Model:     m.PortfolioModel,
			Timestamp: t,
			Weights:   map[string]float64{"model1": 1.0},
		},
	}, nil
}
