package log

import (
	"bilancio/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldYear          = "year"
	FieldMonth         = "month"
	FieldDeclarationID = "declaration_id"
	FieldSeriesKey     = "series_key"
	FieldAmount        = "amount"
	FieldMode          = "mode"
	FieldCreated       = "created"
	FieldEventKind     = "event_kind"
	FieldSheetsRef     = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentBudget      = "budget"
	ComponentPropagation = "propagation"
	ComponentGapFill     = "gap_fill"
	ComponentSplit       = "split"
	ComponentStorage     = "storage"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentSheets      = "sheets"
	ComponentCache       = "cache"
	ComponentTrace       = "trace"
	ComponentBackend     = "backend"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpPropagate = "propagate"
	OpSync      = "sync"
	OpSplit     = "split"
	OpImport    = "import"
	OpExport    = "export"
	OpSeed      = "seed"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithMonth adds year and month fields
func (f LogFields) WithMonth(ym core.YearMonth) LogFields {
	f[FieldYear] = ym.Year
	f[FieldMonth] = ym.Month
	return f
}

// WithDeclaration adds the identifying fields of a declaration
func (f LogFields) WithDeclaration(d core.Declaration) LogFields {
	f[FieldDeclarationID] = d.ID
	f[FieldSeriesKey] = d.Key().String()
	f[FieldAmount] = core.FormatAmount(d.Amount)
	f[FieldMode] = string(d.Mode)
	return f.WithMonth(d.YearMonth())
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
