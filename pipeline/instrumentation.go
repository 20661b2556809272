package pipeline

import "go.opentelemetry.io/otel"

const scopeName = "github.com/RyanBlaney/pitchdrop/pipeline"

var tracer = otel.Tracer(scopeName)
