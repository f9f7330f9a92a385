/*
Package observability turns coordinator lifecycle hooks into Prometheus metrics
and journal records.

Both are plain domain.LifecycleHooks values, so they compose with Merge:

	hooks := observability.NewMetrics(prometheus.DefaultRegisterer).Hooks().
		Merge(observability.JournalHooks(journal, logger))
*/
package observability
