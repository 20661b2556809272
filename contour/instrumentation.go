package contour

import "go.opentelemetry.io/otel"

const scopeName = "github.com/RyanBlaney/pitchdrop/contour"

var tracer = otel.Tracer(scopeName)
