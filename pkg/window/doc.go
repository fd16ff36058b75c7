// Package window implements the stability window: a fixed-capacity FIFO of
// the most recent classifier labels and its majority computation.
//
// A label is only considered stable when it fills the whole window. The
// window itself does not decide that; it reports the majority label and its
// support count and leaves the unanimity test to package policy.
//
// Ties between equally frequent labels resolve to the label that was pushed
// most recently, so the result never depends on map iteration order.
package window
