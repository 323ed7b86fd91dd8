package shipping

import (
	"fmt"
	"sort"
	"strings"
)

type Address struct {
	Country    string `json:"country"`
	State      string `json:"state"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

type Dimensions struct {
	LengthCM int `json:"length_cm"`
	WidthCM  int `json:"width_cm"`
	HeightCM int `json:"height_cm"`
}

type Parcel struct {
	WeightGrams int         `json:"weight_grams"`
	Dimensions  *Dimensions `json:"dimensions,omitempty"`
}

type Option struct {
	Carrier   string `json:"carrier"`
	Service   string `json:"service"`
	CostCents int64  `json:"cost_cents"`
	Currency  string `json:"currency"`
	ETA       string `json:"eta"`
	Insured   bool   `json:"insured"`
}

// rate is a zone-scoped tariff: flat base plus a per-kilogram charge, rounded
// up to whole kilograms.
type rate struct {
	carrier   string
	service   string
	baseCents int64
	perKG     int64
	etaMin    int // days
	etaMax    int
	insured   bool
}

var zoneRates = map[string][]rate{
	"domestic": {
		{carrier: "JNE", service: "Regular", baseCents: 900, perKG: 600, etaMin: 2, etaMax: 4},
		{carrier: "JNE", service: "Express", baseCents: 1800, perKG: 1100, etaMin: 1, etaMax: 2, insured: true},
		{carrier: "SiCepat", service: "Standard", baseCents: 850, perKG: 650, etaMin: 2, etaMax: 5},
		{carrier: "AnterAja", service: "Same Day", baseCents: 2500, perKG: 1500, etaMin: 0, etaMax: 1, insured: true},
	},
	"regional": {
		{carrier: "DHL", service: "Regional Economy", baseCents: 4500, perKG: 2400, etaMin: 4, etaMax: 8},
		{carrier: "FedEx", service: "Regional Priority", baseCents: 8000, perKG: 3600, etaMin: 2, etaMax: 4, insured: true},
	},
	"international": {
		{carrier: "DHL", service: "Worldwide Saver", baseCents: 12000, perKG: 5200, etaMin: 6, etaMax: 12},
		{carrier: "FedEx", service: "International Priority", baseCents: 19000, perKG: 7400, etaMin: 3, etaMax: 6, insured: true},
	},
}

var countryZones = map[string]string{
	"ID": "domestic",
	"SG": "regional",
	"MY": "regional",
	"TH": "regional",
	"VN": "regional",
	"PH": "regional",
}

type Calculator struct {
	Currency string // cost currency tag, defaults to IDR
}

// Quote returns the available options for a destination, cheapest first. An
// unservable destination or an unusable parcel yields an empty slice, never an
// error: the caller renders a "no shipping available" state.
func (c *Calculator) Quote(addr Address, parcel Parcel) []Option {
	country := strings.ToUpper(strings.TrimSpace(addr.Country))
	if country == "" || parcel.WeightGrams < 0 {
		return nil
	}

	zone, ok := countryZones[country]
	if !ok {
		if len(country) != 2 {
			return nil
		}
		zone = "international"
	}

	kg := chargeableKG(parcel)
	currency := c.Currency
	if currency == "" {
		currency = "IDR"
	}

	rates := zoneRates[zone]
	out := make([]Option, 0, len(rates))
	for _, rt := range rates {
		out = append(out, Option{
			Carrier:   rt.carrier,
			Service:   rt.service,
			CostCents: rt.baseCents + rt.perKG*kg,
			Currency:  currency,
			ETA:       etaString(rt.etaMin, rt.etaMax),
			Insured:   rt.insured,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CostCents < out[j].CostCents })
	return out
}

// chargeableKG rounds the billable weight up to whole kilograms, taking the
// larger of actual and volumetric weight (cm^3 / 6000 rule).
func chargeableKG(p Parcel) int64 {
	grams := p.WeightGrams
	if d := p.Dimensions; d != nil && d.LengthCM > 0 && d.WidthCM > 0 && d.HeightCM > 0 {
		volumetric := d.LengthCM * d.WidthCM * d.HeightCM / 6 // grams, = cm^3/6000 kg
		if volumetric > grams {
			grams = volumetric
		}
	}
	if grams <= 0 {
		return 1
	}
	return int64((grams + 999) / 1000)
}

func etaString(min, max int) string {
	switch {
	case max <= 1:
		return "Arrives today or tomorrow"
	case min == max:
		return fmt.Sprintf("%d days", min)
	default:
		return fmt.Sprintf("%d-%d days", min, max)
	}
}
