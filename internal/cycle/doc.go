// Package cycle defines the repeating "day" used for habit gating and
// streaks: a window that opens at a fixed reset hour instead of midnight.
//
// Every consumer that needs a today/yesterday/last-week boundary derives it
// from Start. Comparing calendar dates directly is wrong near the reset hour
// and must not be used anywhere else in the module.
package cycle
