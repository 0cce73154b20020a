package recorder

import (
	"context"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// BinanceDepthSource reads spot order-book depth from Binance.
type BinanceDepthSource struct {
	client *binance.Client
}

// NewBinanceDepthSource creates a depth source. Public depth needs no API keys.
func NewBinanceDepthSource(client *binance.Client) *BinanceDepthSource {
	if client == nil {
		client = binance.NewClient("", "")
	}
	return &BinanceDepthSource{client: client}
}

// Depth fetches the top limit levels of both sides for symbol.
func (s *BinanceDepthSource) Depth(ctx context.Context, symbol string, limit int) (Depth, error) {
	resp, err := s.client.NewDepthService().
		Symbol(symbol).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return Depth{}, errors.Wrapf(err, "failed to fetch depth from Binance for %s", symbol)
	}

	rawBids := make([]rawLevel, len(resp.Bids))
	for i, b := range resp.Bids {
		rawBids[i] = rawLevel{price: b.Price, quantity: b.Quantity}
	}
	rawAsks := make([]rawLevel, len(resp.Asks))
	for i, a := range resp.Asks {
		rawAsks[i] = rawLevel{price: a.Price, quantity: a.Quantity}
	}

	bids, err := convertLevels(rawBids)
	if err != nil {
		return Depth{}, errors.Wrap(err, "bids")
	}
	asks, err := convertLevels(rawAsks)
	if err != nil {
		return Depth{}, errors.Wrap(err, "asks")
	}
	return Depth{Bids: bids, Asks: asks}, nil
}

type rawLevel struct {
	price    string
	quantity string
}

func convertLevels(levels []rawLevel) ([]Level, error) {
	out := make([]Level, len(levels))
	for i, l := range levels {
		price, err := decimal.NewFromString(l.price)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse price at level %d", i+1)
		}
		qty, err := decimal.NewFromString(l.quantity)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse quantity at level %d", i+1)
		}
		out[i] = Level{Price: price, Quantity: qty}
	}
	return out, nil
}
