// Package middleware instruments page management.
//
// A Middleware wraps the page manager a router hands navigations to, so it
// sees every managed page together with its outcome:
//   - OpenTelemetry starts a span per managed page; the span context flows
//     into controller loads through the context.
//   - Prometheus counts managed pages by route and status and observes how
//     long they take.
//
//	pm := middleware.Wrap(manager.NewServer(cfg),
//		middleware.OpenTelemetry(middleware.WithTracerName("shop")),
//		middleware.Prometheus(middleware.WithNamespace("shop")),
//	)
//	r := router.NewServer(pm, dispatcher, req, resp)
//
// Metrics are registered on prometheus.DefaultRegisterer unless
// WithRegistry is given. Expose them with promhttp:
//
//	http.Handle("/metrics", promhttp.Handler())
package middleware
