package model

type FeePreset string

const (
	// StatementFees is the combined rate observed on broker settlement statements.
	StatementFees FeePreset = "statement"
	// AdvertisedFees is the published brokerage fee plus transaction tax.
	AdvertisedFees FeePreset = "advertised"
	CustomFees     FeePreset = "custom"
)

const (
	BrokerageFeeRate   = 0.00015
	TransactionTaxRate = 0.0018
)

// ExitCostRates are applied once to the gross sale value: value * (1 - rate).
var ExitCostRates = map[FeePreset]float64{
	StatementFees:  0.001161,
	AdvertisedFees: BrokerageFeeRate + TransactionTaxRate,
}
