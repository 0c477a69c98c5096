// Package schedule implements the interval arithmetic behind the bot's
// free-time answers.
//
// Everything here is a pure function over its inputs: intervals are
// half-open [start, end) values, merging is a sorted sweep, and the
// Finder composes clip -> merge -> gaps per day over externally
// persisted busy rows.
package schedule
