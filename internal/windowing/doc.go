// Package windowing selects how much of a transcript is sent with a chat turn.
// The budget is an estimated token count; exchanges (a user message and the
// reply to it) are kept or dropped as a unit.
package windowing
