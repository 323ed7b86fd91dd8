package shipping

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteSortedAscendingByCost(t *testing.T) {
	c := &Calculator{}
	opts := c.Quote(Address{Country: "ID", City: "Jakarta"}, Parcel{WeightGrams: 2500})
	require.NotEmpty(t, opts)
	assert.True(t, sort.SliceIsSorted(opts, func(i, j int) bool {
		return opts[i].CostCents < opts[j].CostCents
	}))
	for _, o := range opts {
		assert.GreaterOrEqual(t, o.CostCents, int64(0))
		assert.Equal(t, "IDR", o.Currency)
		assert.NotEmpty(t, o.ETA)
	}
}

func TestQuoteNoAddressReturnsEmpty(t *testing.T) {
	c := &Calculator{}
	assert.Empty(t, c.Quote(Address{}, Parcel{WeightGrams: 1000}))
}

func TestQuoteNegativeWeightReturnsEmpty(t *testing.T) {
	c := &Calculator{}
	assert.Empty(t, c.Quote(Address{Country: "ID"}, Parcel{WeightGrams: -1}))
}

func TestQuoteUnknownCountryFallsBackToInternational(t *testing.T) {
	c := &Calculator{}
	opts := c.Quote(Address{Country: "de"}, Parcel{WeightGrams: 1000})
	require.NotEmpty(t, opts)
	for _, o := range opts {
		assert.Contains(t, []string{"DHL", "FedEx"}, o.Carrier)
	}
}

func TestQuoteUnservableDestination(t *testing.T) {
	c := &Calculator{}
	assert.Empty(t, c.Quote(Address{Country: "XYZ"}, Parcel{WeightGrams: 1000}))
}

func TestQuoteWeightScalesCost(t *testing.T) {
	c := &Calculator{}
	light := c.Quote(Address{Country: "ID"}, Parcel{WeightGrams: 500})
	heavy := c.Quote(Address{Country: "ID"}, Parcel{WeightGrams: 9500})
	require.NotEmpty(t, light)
	require.NotEmpty(t, heavy)
	assert.Greater(t, heavy[0].CostCents, light[0].CostCents)
}

func TestChargeableKGVolumetric(t *testing.T) {
	// 60x40x30cm = 72000 cm^3 -> 12kg volumetric beats 2kg actual.
	p := Parcel{WeightGrams: 2000, Dimensions: &Dimensions{LengthCM: 60, WidthCM: 40, HeightCM: 30}}
	assert.Equal(t, int64(12), chargeableKG(p))

	// Actual wins when bigger.
	p = Parcel{WeightGrams: 15000, Dimensions: &Dimensions{LengthCM: 10, WidthCM: 10, HeightCM: 10}}
	assert.Equal(t, int64(15), chargeableKG(p))

	// Rounds up to whole kilograms, minimum 1.
	assert.Equal(t, int64(1), chargeableKG(Parcel{WeightGrams: 1}))
	assert.Equal(t, int64(1), chargeableKG(Parcel{WeightGrams: 0}))
	assert.Equal(t, int64(2), chargeableKG(Parcel{WeightGrams: 1001}))
}

func TestQuoteCurrencyOverride(t *testing.T) {
	c := &Calculator{Currency: "USD"}
	opts := c.Quote(Address{Country: "SG"}, Parcel{WeightGrams: 1000})
	require.NotEmpty(t, opts)
	assert.Equal(t, "USD", opts[0].Currency)
}
