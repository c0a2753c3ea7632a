package service

import "github.com/shopspring/decimal"

// PriceScale is the number of decimal places prices are rounded to.
const PriceScale = 2

var minutesPerHour = decimal.NewFromInt(60)

// ComputePrice returns hourlyRate * minutes / 60 rounded half away from zero to two places.
func ComputePrice(hourlyRate decimal.Decimal, durationMinutes int) decimal.Decimal {
	return hourlyRate.Mul(decimal.NewFromInt(int64(durationMinutes))).
		Div(minutesPerHour).
		Round(PriceScale)
}
