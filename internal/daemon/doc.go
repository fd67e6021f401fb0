// Package daemon keeps a rendered site restyled while the documentation
// generator keeps rewriting it.
//
// Three sources trigger work: an fsnotify watcher that batches page writes
// behind a quiet window, an optional gocron sweep over the whole site, and the
// initial sweep on start. Runs are serialized. A small chi router exposes
// /healthz, /metrics and /status.
package daemon
