package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreightService_Quote(t *testing.T) {
	svc := NewFreightService(0)

	quotes, err := svc.Quote(context.Background(), "01310930")
	require.NoError(t, err)
	require.Len(t, quotes, 3)

	// Last digit 0 → base price 18.
	assert.Equal(t, "PAC (Correios)", quotes[0].Service)
	assert.Equal(t, "18", quotes[0].Price.String())
	assert.Equal(t, 5, quotes[0].Days)

	assert.Equal(t, "SEDEX (Correios)", quotes[1].Service)
	assert.Equal(t, "28.8", quotes[1].Price.String())
	assert.Equal(t, 1, quotes[1].Days)

	assert.Equal(t, "JadLog .Com", quotes[2].Service)
	assert.Equal(t, "16.2", quotes[2].Price.String())
	assert.Equal(t, 7, quotes[2].Days)
}

func TestFreightService_Quote_StripsMask(t *testing.T) {
	svc := NewFreightService(0)

	masked, err := svc.Quote(context.Background(), "01310-930")
	require.NoError(t, err)
	plain, err := svc.Quote(context.Background(), "01310930")
	require.NoError(t, err)
	assert.Equal(t, plain, masked)
}

func TestFreightService_Quote_LastDigitNine(t *testing.T) {
	svc := NewFreightService(0)

	quotes, err := svc.Quote(context.Background(), "04538139")
	require.NoError(t, err)
	assert.Equal(t, "27", quotes[0].Price.String()) // 18 + 9
	assert.Equal(t, 5, quotes[0].Days)              // 5 + 9%3
	assert.Equal(t, "43.2", quotes[1].Price.String())
	assert.Equal(t, 2, quotes[1].Days) // 1 + 9%2
}

func TestFreightService_Quote_Invalid(t *testing.T) {
	svc := NewFreightService(0)

	_, err := svc.Quote(context.Background(), "123")
	assert.ErrorIs(t, err, ErrInvalidPostalCode)

	_, err = svc.Quote(context.Background(), "00000000")
	assert.ErrorIs(t, err, ErrPostalCodeNotFound)

	_, err = svc.Quote(context.Background(), "abcd-efgh")
	assert.ErrorIs(t, err, ErrInvalidPostalCode)
}
