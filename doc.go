// Package investool keeps a personal stock portfolio on target.
//
// A Portfolio holds positions (Holding) with a target share of the total
// value each. Prices are refreshed from a PriceSource and converted into the
// portfolio currency with an FxSource.
//
// The Rebalancer turns the difference between current and target shares into
// whole-unit trades:
//   - AllocationDifference returns the raw signed delta of every holding.
//   - PlanSellThenBuy sells first and buys with the proceeds plus liquid cash.
//   - PlanBuyOnly buys with liquid cash only and never sells.
//
// Both plans size the targets on the portfolio value alone, the liquid cash
// only pays for trades. They buy the biggest deltas first and clip them when
// cash runs out, so a partial rebalance still corrects the largest gaps.
// CashRemaining reports the cash left by a plan.
//
// All amounts are decimals. Lookups that fail never stop a computation: they
// fall back to a documented value and are reported as *DegradedPriceError
// warnings next to the result.
package investool
