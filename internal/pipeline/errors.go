package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for typed error checking. Adapters wrap one of these with
// %w so Classify can map any failure to a Kind.
var (
	ErrDecode      = errors.New("decode error")
	ErrValidation  = errors.New("validation error")
	ErrProcessing  = errors.New("processing error")
	ErrTool        = errors.New("tool error")
	ErrTimeout     = errors.New("operation timed out")
	ErrUnavailable = errors.New("service unavailable")
	ErrInternal    = errors.New("internal error")
)

// Kind is the failure category of an operation.
type Kind int

const (
	KindNone Kind = iota
	KindDecode
	KindValidation
	KindProcessing
	KindTool
	KindTimeout
	KindUnavailable
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindDecode:
		return "decode"
	case KindValidation:
		return "validation"
	case KindProcessing:
		return "processing"
	case KindTool:
		return "tool"
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Code is the machine-readable error code sent to clients.
func (k Kind) Code() string {
	switch k {
	case KindDecode:
		return "DECODE_ERROR"
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindProcessing:
		return "PROCESSING_ERROR"
	case KindTool:
		return "TOOL_ERROR"
	case KindTimeout:
		return "TIMEOUT"
	case KindUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}

// HTTPStatus maps a kind to its response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNone:
		return http.StatusOK
	case KindDecode, KindValidation:
		return http.StatusBadRequest
	case KindProcessing, KindTool:
		return http.StatusUnprocessableEntity
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Classify maps err to its Kind. Unrecognized errors and cancellations are
// internal.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrProcessing):
		return KindProcessing
	case errors.Is(err, ErrTool):
		return KindTool
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindInternal
	}
}

func Decodef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDecode, fmt.Sprintf(format, args...))
}

func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Processingf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProcessing, fmt.Sprintf(format, args...))
}

// Processing marks an adapter error as a processing failure, keeping the
// original error in the chain.
func Processing(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrProcessing, err)
}
