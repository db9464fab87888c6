// Package gas computes displayed gas-cost estimates.
package gas

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/Klingon-tech/coinforge/internal/ledger"
	"github.com/Klingon-tech/coinforge/pkg/types"
)

// ErrSimulationUnavailable means no cost could be derived from a simulation.
// It never blocks submission; the displayed estimate falls back to Placeholder.
var ErrSimulationUnavailable = errors.New("simulation unavailable")

// Placeholder is shown while the gas price is unknown.
const Placeholder = "—"

// Scale is the number of decimals of the gas coin's display unit.
const Scale = 9

// DisplayPlaces is the number of fractional digits in an estimate.
const DisplayPlaces = 4

// EstimateFromBudget returns budget × price in display units with four
// decimals, or Placeholder when the price is unknown.
func EstimateFromBudget(price, budget uint64) string {
	if price == 0 {
		return Placeholder
	}
	cost := new(big.Int).Mul(new(big.Int).SetUint64(budget), new(big.Int).SetUint64(price))
	return FormatBaseUnits(cost, DisplayPlaces)
}

// EstimateFromSimulation returns computation + storage − rebate in display
// units with four decimals. Any missing component or failed simulation
// yields ErrSimulationUnavailable.
func EstimateFromSimulation(dr *ledger.DryRun) (string, error) {
	net, err := NetCost(dr)
	if err != nil {
		return "", err
	}
	return FormatBaseUnits(net, DisplayPlaces), nil
}

// NetCost is the simulation's net cost in gas-coin base units. It can be
// negative when the rebate outweighs the cost.
func NetCost(dr *ledger.DryRun) (*big.Int, error) {
	if dr == nil {
		return nil, fmt.Errorf("%w: no result", ErrSimulationUnavailable)
	}
	if !dr.Success {
		return nil, fmt.Errorf("%w: %s", ErrSimulationUnavailable, dr.Error)
	}
	g := dr.GasUsed
	if g.ComputationCost == nil || g.StorageCost == nil || g.StorageRebate == nil {
		return nil, fmt.Errorf("%w: incomplete cost breakdown", ErrSimulationUnavailable)
	}
	net := new(big.Int).SetUint64(*g.ComputationCost)
	net.Add(net, new(big.Int).SetUint64(*g.StorageCost))
	net.Sub(net, new(big.Int).SetUint64(*g.StorageRebate))
	return net, nil
}

// FormatBaseUnits renders gas-coin base units in display units, rounded
// half away from zero to places decimals.
func FormatBaseUnits(v *big.Int, places int32) string {
	return decimal.NewFromBigInt(v, -Scale).StringFixed(places)
}

// FormatAmount is FormatBaseUnits for an Amount.
func FormatAmount(v types.Amount, places int32) string {
	if v.IsNil() {
		return FormatBaseUnits(new(big.Int), places)
	}
	return FormatBaseUnits(v.BigInt(), places)
}
