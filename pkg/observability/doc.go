/*
Package observability turns engine lifecycle events into signals for the outside world.

Each helper returns a domain.LifecycleHooks value; combine them with domain.Merge
and hand the result to waypoint.WithLifecycleHooks:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := domain.Merge(
		observability.LoggingHooks(logger),
		metrics.Hooks(),
		observability.PublishHooks(publisher, logger, 5*time.Second),
	)
*/
package observability
