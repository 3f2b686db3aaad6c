package types

import "example.com/typeddoc"

type RatesQuery struct {
	Rates []RatesQueryRatesExchangeRate `json:"rates"`
}

type RatesQueryRatesExchangeRate struct {
	Currency string  `json:"currency"`
	Rate     float64 `json:"rate"`
}

type RatesQueryVariables struct {
	Currency string `json:"currency"`
}

var RatesQueryDocument = typeddoc.New[RatesQuery, RatesQueryVariables](`query rates($currency: String!) { rates(currency: $currency) { currency rate } }`)

var RatesUntypedDocument = &typeddoc.Untyped{}
