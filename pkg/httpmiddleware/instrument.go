package httpmiddleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instrument records a server span and the otelhttp request metrics for every
// request. Spans start out named after the method. otelhttp names them again
// once the router has set r.Pattern, and by then the chi route is known.
func Instrument(service string, tp trace.TracerProvider, mp metric.MeterProvider) Middleware {
	return otelhttp.NewMiddleware(service,
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithMeterProvider(mp),
		otelhttp.WithSpanNameFormatter(spanName),
	)
}

func spanName(_ string, r *http.Request) string {
	if route := RoutePattern(r); route != "" {
		return r.Method + " " + route
	}
	return r.Method
}

// Labeler adds the matched route to the current span and to the otelhttp
// metric labels. It must run inside Instrument and on a chi router.
func Labeler() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			route := RoutePattern(r)
			if route == "" {
				return
			}
			attr := attribute.String("http.route", route)

			// Covers requests cloned by later middleware, whose r.Pattern
			// never reaches otelhttp.
			span := trace.SpanFromContext(r.Context())
			span.SetName(spanName("", r))
			span.SetAttributes(attr)

			if l, ok := otelhttp.LabelerFromContext(r.Context()); ok {
				l.Add(attr)
			}
		})
	}
}
