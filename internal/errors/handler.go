// Package errors provides the pluggable error classification framework the
// worker pool consults once per job failure. The pool only logs a "fatal"
// verdict: it never stops the pool and never changes what a caller's
// AsyncResult observes for the failing job.
package errors

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/nullstream/timerq/pkg/logx"
)

// ErrorHandler decides how the worker pool reacts to a job failure.
type ErrorHandler interface {
	// HandleError processes the failure described by errCtx. A non-nil
	// return means the pool should treat it as fatal; nil means the pool
	// continues running.
	HandleError(ctx context.Context, errCtx *ErrorContext) error

	// Name identifies the handler for registry lookups and diagnostics.
	Name() string

	// CanHandle reports whether this handler applies to err.
	CanHandle(err error) bool
}

// ErrorContext carries the information available about a job failure at
// the point the pool's error classifier runs.
type ErrorContext struct {
	Error error

	// OperationName identifies the job or stage that failed.
	OperationName string

	// JobID is the failing job's identifier, when known.
	JobID string

	InputData interface{}
	InputType reflect.Type

	Timestamp time.Time

	RetryCount int
	MaxRetries int

	ErrorChain []*ChainedError

	Metadata map[string]interface{}

	// QueueID identifies the timer queue or pool instance, for
	// deployments that run more than one.
	QueueID string
}

// ChainedError is one hop in a job's retry/failure history.
type ChainedError struct {
	Error     error
	Stage     string
	Timestamp time.Time
	Duration  time.Duration
}

// AddToChain appends a hop to the error chain.
func (ec *ErrorContext) AddToChain(err error, stage string, duration time.Duration) {
	ec.ErrorChain = append(ec.ErrorChain, &ChainedError{
		Error:     err,
		Stage:     stage,
		Timestamp: time.Now(),
		Duration:  duration,
	})
}

// GetRootError returns the first recorded error in the chain, or Error if
// the chain is empty.
func (ec *ErrorContext) GetRootError() error {
	if len(ec.ErrorChain) == 0 {
		return ec.Error
	}
	return ec.ErrorChain[0].Error
}

// GetLastError returns the most recent recorded error in the chain, or
// Error if the chain is empty.
func (ec *ErrorContext) GetLastError() error {
	if len(ec.ErrorChain) == 0 {
		return ec.Error
	}
	return ec.ErrorChain[len(ec.ErrorChain)-1].Error
}

// NewErrorContext builds a context for a fresh failure. MaxRetries
// defaults to 3; callers that configure retry.RetryPolicy separately should
// overwrite it to match.
func NewErrorContext(err error, operationName string, inputData interface{}) *ErrorContext {
	var inputType reflect.Type
	if inputData != nil {
		inputType = reflect.TypeOf(inputData)
	}

	return &ErrorContext{
		Error:         err,
		OperationName: operationName,
		InputData:     inputData,
		InputType:     inputType,
		Timestamp:     time.Now(),
		MaxRetries:    3,
		Metadata:      make(map[string]interface{}),
	}
}

// Strategy names a built-in classification strategy.
type Strategy int

const (
	// FailFastStrategy treats every job failure as fatal to the pool.
	FailFastStrategy Strategy = iota
	// ContinueOnErrorStrategy never treats a job failure as fatal to the
	// pool; the failure still reaches the job's own AsyncResult.
	ContinueOnErrorStrategy
)

func (s Strategy) String() string {
	switch s {
	case FailFastStrategy:
		return "FailFast"
	case ContinueOnErrorStrategy:
		return "ContinueOnError"
	default:
		return "Unknown"
	}
}

// FailFastHandler treats every failure as fatal to the pool.
type FailFastHandler struct{}

// NewFailFastHandler constructs a FailFastHandler.
func NewFailFastHandler() *FailFastHandler { return &FailFastHandler{} }

func (h *FailFastHandler) HandleError(ctx context.Context, errCtx *ErrorContext) error {
	return errCtx.Error
}

func (h *FailFastHandler) Name() string { return "FailFast" }

func (h *FailFastHandler) CanHandle(err error) bool { return true }

// ContinueOnErrorHandler never treats a failure as fatal to the pool. When
// configured with specific error types, only those types are swallowed;
// others are passed through as fatal.
type ContinueOnErrorHandler struct {
	ignoredErrorTypes map[reflect.Type]bool
	log               logx.Logger
	mu                sync.RWMutex
}

// ContinueOnErrorConfig configures a ContinueOnErrorHandler.
type ContinueOnErrorConfig struct {
	// IgnoredErrorTypes restricts which error types are swallowed. Empty
	// means swallow everything.
	IgnoredErrorTypes []error
	// Logger receives a line for every swallowed error. Defaults to a
	// no-op logger.
	Logger logx.Logger
}

// NewContinueOnErrorHandler constructs a ContinueOnErrorHandler. A nil
// config swallows all errors and logs nothing.
func NewContinueOnErrorHandler(config *ContinueOnErrorConfig) *ContinueOnErrorHandler {
	h := &ContinueOnErrorHandler{
		ignoredErrorTypes: make(map[reflect.Type]bool),
		log:               logx.NewNop(),
	}

	if config != nil {
		if config.Logger != nil {
			h.log = config.Logger
		}
		for _, errType := range config.IgnoredErrorTypes {
			if errType != nil {
				h.ignoredErrorTypes[reflect.TypeOf(errType)] = true
			}
		}
	}

	return h
}

func (h *ContinueOnErrorHandler) HandleError(ctx context.Context, errCtx *ErrorContext) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.ignoredErrorTypes) > 0 {
		if !h.ignoredErrorTypes[reflect.TypeOf(errCtx.Error)] {
			return errCtx.Error
		}
	}

	h.log.Warnf("pool: continuing past error in %s (job %s): %v", errCtx.OperationName, errCtx.JobID, errCtx.Error)
	return nil
}

func (h *ContinueOnErrorHandler) Name() string { return "ContinueOnError" }

func (h *ContinueOnErrorHandler) CanHandle(err error) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.ignoredErrorTypes) == 0 {
		return true
	}
	return h.ignoredErrorTypes[reflect.TypeOf(err)]
}

// AddIgnoredErrorType adds an error type to the ignore set at runtime.
func (h *ContinueOnErrorHandler) AddIgnoredErrorType(err error) {
	if err == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ignoredErrorTypes[reflect.TypeOf(err)] = true
}

// RemoveIgnoredErrorType removes an error type from the ignore set.
func (h *ContinueOnErrorHandler) RemoveIgnoredErrorType(err error) {
	if err == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.ignoredErrorTypes, reflect.TypeOf(err))
}

// HandlerRegistry maps handler names and error types to ErrorHandlers.
// The worker pool does not hold a registry; its Config takes a single
// ErrorHandler, which may be one looked up here.
type HandlerRegistry struct {
	handlers       map[string]ErrorHandler
	typeHandlers   map[reflect.Type]ErrorHandler
	defaultHandler ErrorHandler
	mu             sync.RWMutex
}

// NewHandlerRegistry builds a registry pre-populated with FailFast and
// ContinueOnError, defaulting to FailFast.
func NewHandlerRegistry() *HandlerRegistry {
	failFast := NewFailFastHandler()
	continueOnError := NewContinueOnErrorHandler(nil)

	r := &HandlerRegistry{
		handlers:       make(map[string]ErrorHandler),
		typeHandlers:   make(map[reflect.Type]ErrorHandler),
		defaultHandler: failFast,
	}

	_ = r.RegisterHandler(failFast)
	_ = r.RegisterHandler(continueOnError)

	return r
}

// RegisterHandler adds handler under its own Name(). It is an error to
// register two handlers with the same name.
func (r *HandlerRegistry) RegisterHandler(handler ErrorHandler) error {
	if handler == nil {
		return fmt.Errorf("errors: cannot register nil handler")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := handler.Name()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("errors: handler %q already registered", name)
	}
	r.handlers[name] = handler
	return nil
}

// UnregisterHandler removes a handler and any error-type bindings pointing
// to it.
func (r *HandlerRegistry) UnregisterHandler(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; !exists {
		return fmt.Errorf("errors: handler %q not found", name)
	}
	delete(r.handlers, name)

	for errType, handler := range r.typeHandlers {
		if handler.Name() == name {
			delete(r.typeHandlers, errType)
		}
	}
	return nil
}

// GetHandler looks up a handler by name.
func (r *HandlerRegistry) GetHandler(name string) (ErrorHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, exists := r.handlers[name]
	if !exists {
		return nil, fmt.Errorf("errors: handler %q not found", name)
	}
	return handler, nil
}

// GetHandlerForError returns the handler bound to err's dynamic type, or
// the default handler if none is bound.
func (r *HandlerRegistry) GetHandlerForError(err error) ErrorHandler {
	if err == nil {
		return r.defaultHandler
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if handler, exists := r.typeHandlers[reflect.TypeOf(err)]; exists {
		return handler
	}
	return r.defaultHandler
}

// SetDefaultHandler replaces the fallback handler used when no type
// binding matches.
func (r *HandlerRegistry) SetDefaultHandler(handler ErrorHandler) error {
	if handler == nil {
		return fmt.Errorf("errors: cannot set nil default handler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultHandler = handler
	return nil
}

// GetDefaultHandler returns the current fallback handler.
func (r *HandlerRegistry) GetDefaultHandler() ErrorHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultHandler
}

// BindErrorTypeToHandler routes errType's dynamic type to the named
// handler.
func (r *HandlerRegistry) BindErrorTypeToHandler(errType error, handlerName string) error {
	if errType == nil {
		return fmt.Errorf("errors: cannot bind nil error type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	handler, exists := r.handlers[handlerName]
	if !exists {
		return fmt.Errorf("errors: handler %q not found", handlerName)
	}
	r.typeHandlers[reflect.TypeOf(errType)] = handler
	return nil
}

// UnbindErrorType removes a type binding, if any.
func (r *HandlerRegistry) UnbindErrorType(errType error) error {
	if errType == nil {
		return fmt.Errorf("errors: cannot unbind nil error type")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.typeHandlers, reflect.TypeOf(errType))
	return nil
}

// ListHandlers returns the names of all registered handlers.
func (r *HandlerRegistry) ListHandlers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// GetTypeBindings returns a snapshot of type-name to handler-name
// bindings, for diagnostics.
func (r *HandlerRegistry) GetTypeBindings() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bindings := make(map[string]string, len(r.typeHandlers))
	for errType, handler := range r.typeHandlers {
		bindings[errType.String()] = handler.Name()
	}
	return bindings
}
