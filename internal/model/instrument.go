package model

import (
	investapi "github.com/russianinvestments/invest-api-go-sdk/proto"
)

// Instrument is a T-Invest instrument resolved from a portfolio code.
type Instrument struct {
	FIGI           string         `json:"figi"`
	UID            string         `json:"uid"`
	Ticker         string         `json:"ticker"`
	ClassCode      string         `json:"class_code"`
	Name           string         `json:"name"`
	Query          string         `json:"query"`
	Lot            int            `json:"lot"`
	Currency       string         `json:"currency"`
	InstrumentType InstrumentType `json:"instrument_type"`
}

type InstrumentType string

const (
	Bond     InstrumentType = "bond"
	Share    InstrumentType = "share"
	Currency InstrumentType = "currency"
	Etf      InstrumentType = "etf"
)

func FromInvestAPIType(t investapi.InstrumentType) InstrumentType {
	switch t {
	case investapi.InstrumentType_INSTRUMENT_TYPE_BOND:
		return Bond
	case investapi.InstrumentType_INSTRUMENT_TYPE_SHARE:
		return Share
	case investapi.InstrumentType_INSTRUMENT_TYPE_CURRENCY:
		return Currency
	case investapi.InstrumentType_INSTRUMENT_TYPE_ETF:
		return Etf
	default:
		return ""
	}
}
