package quote

import (
	"context"
	"time"

	"KabuScope/internal/model"
)

// Fetcher defines the interface for fetching bar history from a quote source.
type Fetcher interface {
	// FetchBars returns the bar series for one symbol over the lookback
	// period at the given interval. Failures are reported as *model.FetchError.
	FetchBars(ctx context.Context, symbol string, period model.Period, interval model.Interval) (model.Series, error)
	Name() string
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  []model.Bar
	Err   error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, symbol string, _ model.Period, interval model.Interval) (model.Series, error) {
	if m.Err != nil {
		return model.Series{}, &model.FetchError{Symbol: symbol, Err: m.Err}
	}
	if m.Bars != nil {
		return model.NewSeries(symbol, interval, m.Bars), nil
	}
	return model.NewSeries(symbol, interval, generateMockBars(m.Price, 60)), nil
}

func generateMockBars(basePrice float64, count int) []model.Bar {
	if basePrice <= 0 {
		basePrice = 1000
	}
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Time:   time.Now().UTC().AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
