// Package tree builds recombining trinomial trees of an FX rate and prices
// vanilla and knock-out options on them by backward induction.
//
// A tree is described by Data: for every layer k the 2k+1 ascending node levels,
// the (down, middle, up) transition probabilities from layer k-1, and the one-period
// discount factor. Data comes either from a uniform lattice specification
// (NewUniformData) or from the implied-tree Calibrator, which fits the node
// probabilities to an implied volatility surface.
//
// Node j of layer k-1 moves to nodes j, j+1 and j+2 of layer k.
package tree
