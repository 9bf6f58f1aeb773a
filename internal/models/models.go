// Package models provides domain models for the alerting application.
package models

import (
	"strings"
	"time"
)

// Quote represents a point-in-time observation for one symbol.
//
// ChangePercent is kept as the string the source produced (e.g. "-2.3")
// so notification messages reproduce its digits verbatim.
type Quote struct {
	Symbol        string
	Price         float64
	Change        float64
	ChangePercent string
	Volume        int64
	Open          float64
	High          float64
	Low           float64
	PreviousClose float64
	Timestamp     time.Time
}

// ScheduleRule is a wall-clock alert: at Time ("HH:MM" local) the watchlist
// is fetched and sent with Message as the first line.
type ScheduleRule struct {
	Time    string `mapstructure:"time"`
	Message string `mapstructure:"message"`
}

// NormalizeSymbol uppercases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
