package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for conversion failures.
var (
	// ErrImport is the sentinel every ImporterError unwraps to.
	ErrImport = errors.New("import failed")
	// ErrExport is the sentinel every ExporterError unwraps to.
	ErrExport = errors.New("export failed")
	// ErrUnsupportedFormat is returned for unknown --from/--to values.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrNotFound is returned by stores for unknown document ids.
	ErrNotFound = errors.New("not found")
)

// ImporterError aborts an import call.
type ImporterError struct {
	Element string // source element tag involved, if any
	Message string
	Err     error
}

// NewImporterError builds an ImporterError with a formatted message.
func NewImporterError(element, format string, args ...any) *ImporterError {
	return &ImporterError{Element: element, Message: fmt.Sprintf(format, args...)}
}

func (e *ImporterError) Error() string {
	msg := "import"
	if e.Element != "" {
		msg += " " + e.Element
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ImporterError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrImport
}

// Is lets errors.Is(err, ErrImport) hold even when Err is set.
func (e *ImporterError) Is(target error) bool { return target == ErrImport }

// ExporterError aborts an export call.
type ExporterError struct {
	NodeID  string
	Message string
	Err     error
}

// NewExporterError builds an ExporterError with a formatted message.
func NewExporterError(nodeID, format string, args ...any) *ExporterError {
	return &ExporterError{NodeID: nodeID, Message: fmt.Sprintf(format, args...)}
}

func (e *ExporterError) Error() string {
	msg := "export"
	if e.NodeID != "" {
		msg += " " + e.NodeID
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExporterError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrExport
}

// Is lets errors.Is(err, ErrExport) hold even when Err is set.
func (e *ExporterError) Is(target error) bool { return target == ErrExport }
