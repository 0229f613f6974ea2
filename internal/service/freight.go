package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleex/storefront-api/internal/model"
)

var (
	ErrInvalidPostalCode  = errors.New("postal code must contain 8 digits")
	ErrPostalCodeNotFound = errors.New("postal code not found")
)

// FreightService produces deterministic pseudo-quotes keyed by the postal
// code's last digit. A stand-in for a carrier rate API, reproducible for
// testing.
type FreightService struct {
	delay time.Duration // artificial latency of the simulated rate lookup
}

func NewFreightService(delay time.Duration) *FreightService {
	return &FreightService{delay: delay}
}

// Quote returns three shipping options for the given postal code. Non-digits
// are stripped before validation.
func (s *FreightService) Quote(ctx context.Context, postalCode string) ([]model.ShippingQuote, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	clean := digitsOnly(postalCode)
	if len(clean) != 8 {
		return nil, ErrInvalidPostalCode
	}
	if clean == strings.Repeat("0", 8) {
		return nil, ErrPostalCodeNotFound
	}

	d := int(clean[7] - '0')
	base := decimal.NewFromInt(int64(18 + d))
	return []model.ShippingQuote{
		{Service: "PAC (Correios)", Price: base, Days: 5 + d%3},
		{Service: "SEDEX (Correios)", Price: base.Mul(decimal.NewFromFloat(1.6)), Days: 1 + d%2},
		{Service: "JadLog .Com", Price: base.Mul(decimal.NewFromFloat(0.9)), Days: 7},
	}, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
