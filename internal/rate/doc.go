// Package rate acquires daily exchange-rate series for a currency pair.
//
// The Assembler reads what the Store already holds for a date range, asks the
// Source only for the dates that are missing and writes each fetched rate back
// immediately. Repair then turns the sparse result into a DenseSeries with one
// point per calendar date by filling each absent date with the previous rate.
//
// Only observed rates are ever written to a Store. Forward-filled points are
// recomputed on every request so a later correction at the provider is picked
// up instead of being shadowed by a stale fill.
//
// Consumers of a DenseSeries should keep in mind that weekends and holidays
// are filled exactly like outages: a flat stretch in the series may be either.
package rate
