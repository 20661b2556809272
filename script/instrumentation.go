package script

import "go.opentelemetry.io/otel"

const scopeName = "github.com/RyanBlaney/pitchdrop/script"

var tracer = otel.Tracer(scopeName)
