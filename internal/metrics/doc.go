// Package metrics records restyle activity.
//
// Components receive a Recorder and default to NoopRecorder, so nothing needs
// a nil check. The watch daemon swaps in a PrometheusRecorder and exposes it
// through HTTPHandler.
package metrics
