package model

import "time"

type Candle struct {
	Ticker string    `db:"ticker" json:"-"`
	Ts     time.Time `db:"ts" json:"ts"`
	Open   float64   `db:"open_price" json:"open"`
	High   float64   `db:"high_price" json:"high"`
	Low    float64   `db:"low_price" json:"low"`
	Close  float64   `db:"close_price" json:"close"`
	Volume int64     `db:"volume" json:"volume"`
}

type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is ordered chronologically.
type PriceSeries []PricePoint

func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, p := range s {
		closes[i] = p.Close
	}
	return closes
}

func SeriesFromCandles(candles []Candle) PriceSeries {
	series := make(PriceSeries, len(candles))
	for i, c := range candles {
		series[i] = PricePoint{Date: c.Ts, Close: c.Close}
	}
	return series
}

type History struct {
	Ticker  string   `json:"ticker"`
	Candles []Candle `json:"candles"`
}

func (h History) Empty() bool {
	return len(h.Candles) == 0
}

func (h History) Last() Candle {
	if len(h.Candles) == 0 {
		return Candle{}
	}
	return h.Candles[len(h.Candles)-1]
}
