// Package prediction forecasts the next navigation state from observed
// history. TransitionModel keeps first-order Markov transition counts and
// ranks the outgoing edges of the current state by probability.
package prediction
