package core

import (
	"encoding/json"
	"sort"
	"strconv"
)

// VATLine is one per-rate VAT bucket: the HT base taxed at that rate and the
// resulting tax amount.
type VATLine struct {
	Base Money `json:"base"`
	VAT  Money `json:"vat"`
}

// VATBreakdown maps a VAT percentage rate to its bucket. JSON keys are the
// decimal rate ("20", "5.5"), since float map keys are not valid JSON.
type VATBreakdown map[float64]VATLine

func (b VATBreakdown) MarshalJSON() ([]byte, error) {
	out := make(map[string]VATLine, len(b))
	for rate, line := range b {
		out[strconv.FormatFloat(rate, 'f', -1, 64)] = line
	}
	return json.Marshal(out)
}

func (b *VATBreakdown) UnmarshalJSON(data []byte) error {
	raw := make(map[string]VATLine)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(VATBreakdown, len(raw))
	for key, line := range raw {
		rate, err := strconv.ParseFloat(key, 64)
		if err != nil {
			return err
		}
		out[rate] = line
	}
	*b = out
	return nil
}

// Totals is the full financial breakdown of a document. Produced only by
// ComputeTotals; never edited by hand.
type Totals struct {
	TotalHT           Money               `json:"total_ht"`
	TotalPurchaseCost Money               `json:"total_purchase_cost"`
	DiscountAmount    Money               `json:"discount_amount"`
	HTAfterDiscount   Money               `json:"ht_after_discount"`
	VATByRate         VATBreakdown        `json:"vat_by_rate"`
	TotalVAT          Money               `json:"total_vat"`
	TTCGross          Money               `json:"ttc_gross"`
	RetentionAmount   Money               `json:"retention_amount"`
	TTCNet            Money               `json:"ttc_net"`
	Margin            Money               `json:"margin"`
	MarginRate        float64             `json:"margin_rate"`
}

// retentionRate is the retenue de garantie holdback required by French BTP
// contracts: 5% of the post-discount HT, never of the TTC.
const retentionRate = 5.0

// ComputeTotals derives the complete totals for a document from its line
// items and settings. The computation order matters: amounts are rounded to
// cents at each step so no binary floating-point drift can accumulate across
// lines, and the discount is redistributed proportionally across VAT rates
// instead of being collapsed into a single rate.
//
// ComputeTotals never fails: an empty document yields all-zero totals and a
// zero HT base resolves the discount ratio to 1.
func ComputeTotals(doc Document) Totals {
	var (
		totalHT      Money
		purchaseCost Money
		byRate       = make(VATBreakdown)
	)

	for _, section := range doc.Sections {
		for _, line := range section.Lines {
			qty := num(line.Quantity)
			lineAmount := line.UnitPrice.Scale(qty)
			linePurchase := line.PurchaseUnitCost.Scale(qty)

			totalHT = totalHT.Add(lineAmount)
			purchaseCost = purchaseCost.Add(linePurchase)

			// VAT is rounded per line before accumulation; summing raw
			// products and rounding once at the end gives different cents.
			rate := line.EffectiveVATRate(doc.VATDefault)
			bucket := byRate[rate]
			bucket.Base = bucket.Base.Add(lineAmount)
			bucket.VAT = bucket.VAT.Add(lineAmount.MulRate(rate))
			byRate[rate] = bucket
		}
	}

	discount := totalHT.MulRate(doc.DiscountPct)
	htAfterDiscount := totalHT.Sub(discount)

	// Redistribute the discount proportionally across the VAT buckets so a
	// multi-rate document keeps a legally correct per-rate breakdown.
	ratio := 1.0
	if totalHT.Cents > 0 {
		ratio = float64(htAfterDiscount.Cents) / float64(totalHT.Cents)
	}
	for rate, bucket := range byRate {
		bucket.Base = bucket.Base.Scale(ratio)
		bucket.VAT = bucket.VAT.Scale(ratio)
		byRate[rate] = bucket
	}

	var totalVAT Money
	if !doc.Micro {
		for _, bucket := range byRate {
			totalVAT = totalVAT.Add(bucket.VAT)
		}
	}

	margin := htAfterDiscount.Sub(purchaseCost)
	marginRate := 0.0
	if htAfterDiscount.Cents > 0 {
		marginRate = Round2(float64(margin.Cents) / float64(htAfterDiscount.Cents) * 100)
	}

	ttcGross := htAfterDiscount.Add(totalVAT)

	var retention Money
	if doc.RetentionGuarantee {
		retention = htAfterDiscount.MulRate(retentionRate)
	}

	return Totals{
		TotalHT:           totalHT,
		TotalPurchaseCost: purchaseCost,
		DiscountAmount:    discount,
		HTAfterDiscount:   htAfterDiscount,
		VATByRate:         byRate,
		TotalVAT:          totalVAT,
		TTCGross:          ttcGross,
		RetentionAmount:   retention,
		TTCNet:            ttcGross.Sub(retention),
		Margin:            margin,
		MarginRate:        marginRate,
	}
}

// Rates returns the VAT rates present in the breakdown, ascending. Map
// iteration order is not stable; exports and PDFs need a fixed order.
func (t Totals) Rates() []float64 {
	rates := make([]float64, 0, len(t.VATByRate))
	for r := range t.VATByRate {
		rates = append(rates, r)
	}
	sort.Float64s(rates)
	return rates
}
