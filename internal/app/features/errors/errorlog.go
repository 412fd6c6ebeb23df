// internal/app/features/errors/errorlog.go
package errors

import (
	"net/http"

	"go.uber.org/zap"
)

// ErrorLogger pairs structured logging with the error envelope so
// handlers report failures in one call. The log line carries the internal
// error; the response carries only the client-safe text.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger on the given logger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

// LogBadRequest logs a client error and renders a 400.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, op string, err error, text string) {
	e.write(w, r, http.StatusBadRequest, op, err, text)
}

// LogNotFound logs a missing-entity error and renders a 404.
func (e *ErrorLogger) LogNotFound(w http.ResponseWriter, r *http.Request, op string, err error, text string) {
	e.write(w, r, http.StatusNotFound, op, err, text)
}

// LogConflict logs a uniqueness or ownership collision and renders a 409.
func (e *ErrorLogger) LogConflict(w http.ResponseWriter, r *http.Request, op string, err error, text string) {
	e.write(w, r, http.StatusConflict, op, err, text)
}

// LogServerError logs a storage or internal failure and renders a 500.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, op string, err error, text string) {
	e.write(w, r, http.StatusInternalServerError, op, err, text)
}

func (e *ErrorLogger) write(w http.ResponseWriter, r *http.Request, status int, op string, err error, text string) {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if status >= http.StatusInternalServerError {
		e.log.Error(op, fields...)
	} else {
		e.log.Warn(op, fields...)
	}
	RenderError(w, status, text)
}
