package middleware

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/imago-dev/imago/pkg/imaerr"
	"github.com/imago-dev/imago/pkg/page"
	"github.com/imago-dev/imago/pkg/route"
	"github.com/imago-dev/imago/pkg/router"
)

const defaultTracerName = "imago"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "imago").
	TracerName string

	// TracerProvider provides the tracer. Default: the global provider.
	TracerProvider trace.TracerProvider

	// IncludeParams adds the route parameters as span attributes. They may
	// carry user data, so it is off by default.
	IncludeParams bool

	// Filter reports whether a route is traced. Nil traces every route.
	Filter func(h route.Handler) bool

	// AttributeExtractor returns extra attributes of a span.
	AttributeExtractor func(ctx context.Context, h route.Handler, params route.Params) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludeParams enables route parameters as span attributes.
func WithIncludeParams(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeParams = include
	}
}

// WithRouteFilter sets the filter of traced routes.
func WithRouteFilter(filter func(h route.Handler) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(ctx context.Context, h route.Handler, params route.Params) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
	}
}

// OpenTelemetry creates middleware that traces every managed page.
//
// The span is named after the route and carries the action, its URL and
// the response status. Controllers get the span through the context of
// Load and Update, so calls they make with it join the trace. The tracer
// comes from the global provider unless WithTracerProvider is given:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	var tracer trace.Tracer
	if config.TracerProvider != nil {
		tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		tracer = otel.Tracer(config.TracerName)
	}

	return func(next router.PageManager) router.PageManager {
		return ManagerFunc(func(ctx context.Context, h route.Handler, options route.Options, params route.Params, action page.Action) (*page.Response, error) {
			if config.Filter != nil && !config.Filter(h) {
				return next.Manage(ctx, h, options, params, action)
			}

			attrs := []attribute.KeyValue{
				attribute.String("imago.route", h.Name()),
				attribute.String("imago.action", string(action.Type)),
			}
			if action.URL != "" {
				attrs = append(attrs, attribute.String("imago.url", action.URL))
			}
			if routeErr := imaerr.FromContext(ctx); routeErr != nil {
				attrs = append(attrs, attribute.String("imago.route_error", routeErr.Error()))
			}
			if config.IncludeParams {
				for k, v := range params {
					attrs = append(attrs, attribute.String("imago.param."+k, v))
				}
			}
			if config.AttributeExtractor != nil {
				attrs = append(attrs, config.AttributeExtractor(ctx, h, params)...)
			}

			spanCtx, span := tracer.Start(ctx, SpanName(h),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			resp, err := next.Manage(spanCtx, h, options, params, action)
			switch {
			case errors.Is(err, page.ErrNavigationAborted):
				span.SetAttributes(attribute.Bool("imago.aborted", true))
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			default:
				if resp != nil {
					span.SetAttributes(attribute.Int("imago.status", resp.Status))
				}
				span.SetStatus(codes.Ok, "")
			}
			return resp, err
		})
	}
}

// SpanName returns the name of the span of a managed route.
func SpanName(h route.Handler) string {
	return "imago " + h.Name()
}

// SpanFromContext returns the span of the page being managed. Outside a
// traced page it returns a non-recording span.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}
