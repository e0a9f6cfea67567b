package runner

import (
	"context"

	"github.com/stretchr/testify/mock"

	"sma_trader/internal/journal"
	"sma_trader/internal/models"
)

type ExchangeMock struct {
	mock.Mock
}

func (m *ExchangeMock) Name() string { return "mockex" }

func (m *ExchangeMock) FetchRecentCandles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	args := m.Called(ctx, symbol, timeframe, limit)
	return args.Get(0).([]models.Candle), args.Error(1)
}

func (m *ExchangeMock) FetchBalance(ctx context.Context) (models.Balance, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Balance), args.Error(1)
}

func (m *ExchangeMock) RoundAmount(ctx context.Context, symbol string, amount float64) (float64, error) {
	args := m.Called(ctx, symbol, amount)
	return args.Get(0).(float64), args.Error(1)
}

func (m *ExchangeMock) SubmitMarketOrder(ctx context.Context, symbol string, side models.Side, amount float64) (models.OrderReceipt, error) {
	args := m.Called(ctx, symbol, side, amount)
	return args.Get(0).(models.OrderReceipt), args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) Send(msg string) { m.Called(msg) }

func (m *NotifierMock) Sendf(format string, args ...any) { m.Called(format, args) }

type JournalMock struct {
	mock.Mock
}

func (m *JournalMock) Record(ctx context.Context, e journal.Entry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
