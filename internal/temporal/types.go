// Package temporal implements the gateway that mediates every read of
// time-indexed external data. A simulation clock is the watermark: reads past
// it are denied, and every read is recorded in a bounded audit log so a
// backtest can prove it never saw the future.
package temporal

import (
	"fmt"
	"time"
)

// DataType tags the kind of data an access touched
type DataType string

const (
	DataTypePrice      DataType = "PRICE"
	DataTypeOHLCV      DataType = "OHLCV"
	DataTypeOrderBook  DataType = "ORDERBOOK"
	DataTypeNews       DataType = "NEWS"
	DataTypeSocial     DataType = "SOCIAL"
	DataTypeFinancials DataType = "FINANCIALS"
	DataTypeSentiment  DataType = "SENTIMENT"
	DataTypeOnChain    DataType = "ON_CHAIN"
)

// Mode controls how the gateway treats boundary violations
type Mode int

const (
	// ModeLax logs violations and returns null results
	ModeLax Mode = iota
	// ModeStrict turns violations into TemporalViolationError
	ModeStrict
	// ModeLive tracks the wall clock; price reads are cached with a short TTL
	ModeLive
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	case ModeLive:
		return "live"
	default:
		return "lax"
	}
}

// AccessRecord is one entry in the gateway audit log
type AccessRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	DataType       DataType  `json:"data_type"`
	Symbol         string    `json:"symbol"`
	RequestedTime  time.Time `json:"requested_time"`
	SimulationTime time.Time `json:"simulation_time"`
	Allowed        bool      `json:"allowed"`
	Reason         string    `json:"reason,omitempty"`
}

// TemporalViolationError reports a read past the simulation boundary
type TemporalViolationError struct {
	DataType       DataType
	Symbol         string
	RequestedTime  time.Time
	SimulationTime time.Time
}

func (e *TemporalViolationError) Error() string {
	return fmt.Sprintf("temporal violation: %s read for %s at %s is past simulation time %s",
		e.DataType, e.Symbol,
		e.RequestedTime.Format(time.RFC3339), e.SimulationTime.Format(time.RFC3339))
}

// InvalidTimeError reports an attempt to set the clock into the real future
type InvalidTimeError struct {
	Requested time.Time
	WallClock time.Time
}

func (e *InvalidTimeError) Error() string {
	return fmt.Sprintf("invalid simulation time %s: past wall clock %s",
		e.Requested.Format(time.RFC3339), e.WallClock.Format(time.RFC3339))
}
