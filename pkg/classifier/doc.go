// Package classifier defines the image classifier contract and the pieces
// that sit between a raw frame payload and a label.
//
// A frame travels through a Pipeline:
//
//	payload -> DecodePayload -> Cache lookup -> Guard(Classifier) -> Prediction
//
// Guard never returns an error. Any classifier failure, panic or label outside
// the vocabulary collapses to the idle label with zero confidence, so a bad
// model output behaves like "no sign shown".
//
// Two classifiers are provided: Static, which always reports one label and is
// used for wiring and tests, and Remote, which posts the resized frame to an
// HTTP inference endpoint.
package classifier
