// Package metrics provides deployment metrics behind a small Recorder interface.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	orch := deploy.New(deps)                 // NoopRecorder
//	orch := deploy.New(deps, deploy.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// The Prometheus implementation registers its collectors on the supplied
// registry; HTTPHandler exposes that registry for scraping.
package metrics
