package detect

import "go.opentelemetry.io/otel"

const scopeName = "github.com/RyanBlaney/pitchdrop/detect"

var tracer = otel.Tracer(scopeName)
