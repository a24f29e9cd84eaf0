/*
Package observability turns router lifecycle events into Prometheus metrics
and structured log records.

Both are plain domain.LifecycleHooks values and can be combined with Merge:

	m, _ := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := m.Hooks().Merge(observability.LogHooks(logger))
*/
package observability
