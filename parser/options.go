package parser

import "time"

// ParserOpt configures a single Parse call.
type ParserOpt func(*ParserConfig)

// TelemetryMode controls telemetry collection (production-safe).
// TelemetryBasic records only TokenCount/ErrorCount; TelemetryTiming
// additionally times the lex and parse phases separately.
type TelemetryMode int

const (
	TelemetryOff    TelemetryMode = iota // zero overhead (default)
	TelemetryBasic                       // token/error counts only, no timing
	TelemetryTiming                      // counts + per-phase timing
)

// DebugLevel controls debug tracing (development only). DebugPaths
// traces which statement/declaration grammar rule parseStatement took
// (e.g. "variable_declaration", "subroutine", "if"); DebugDetailed adds
// a token-level trace of every p.advance() call on top of that.
type DebugLevel int

const (
	DebugOff      DebugLevel = iota // no debug info (default)
	DebugPaths                      // statement-level production rule tracing
	DebugDetailed                   // + token-level advance() tracing
)

// ParserConfig holds parser configuration.
type ParserConfig struct {
	telemetry TelemetryMode
	debug     DebugLevel
}

// WithTelemetryBasic enables basic telemetry (parse counts only).
func WithTelemetryBasic() ParserOpt {
	return func(c *ParserConfig) { c.telemetry = TelemetryBasic }
}

// WithTelemetryTiming enables timing telemetry (counts + timing per phase).
func WithTelemetryTiming() ParserOpt {
	return func(c *ParserConfig) { c.telemetry = TelemetryTiming }
}

// WithDebugPaths enables production-rule path tracing (development only).
func WithDebugPaths() ParserOpt {
	return func(c *ParserConfig) { c.debug = DebugPaths }
}

// WithDebugDetailed enables detailed token-level tracing (development only).
func WithDebugDetailed() ParserOpt {
	return func(c *ParserConfig) { c.debug = DebugDetailed }
}

// ParseTelemetry holds parser performance metrics (production-safe).
type ParseTelemetry struct {
	LexTime    time.Duration
	ParseTime  time.Duration
	TotalTime  time.Duration
	TokenCount int
	ErrorCount int
}

// DebugEvent holds debug tracing information (development only).
type DebugEvent struct {
	Timestamp time.Time
	Event     string // "enter_subDecl", "exit_subDecl", etc.
	TokenPos  int
	Context   string
}
