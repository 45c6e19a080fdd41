// Package decoder adapts barcode decoder callbacks to the intake pipeline.
//
// The browser decoder reports each detection as
//
//	{"codeResult": {"code": "SCS/12345/23", "format": "code_128"}}
//
// and reports camera start-up failures by error name.
package decoder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/okian/idscan/internal/domain/model"
	"github.com/okian/idscan/pkg/logger"
	"github.com/okian/idscan/pkg/metrics"
)

// Pipeline is the part of the intake pipeline the adapter drives.
type Pipeline interface {
	HandleDetection(ctx context.Context, raw model.RawDetection, now time.Time) model.Signal
}

// CodeResult is the decoded payload of one detection.
type CodeResult struct {
	Code   string `json:"code"`
	Format string `json:"format"`
}

// Result is the decoder's detection callback argument.
type Result struct {
	CodeResult *CodeResult `json:"codeResult"`
}

// ParseResult decodes a detection body. A body without codeResult is rejected.
func ParseResult(data []byte) (Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrMalformedResult, err)
	}
	if r.CodeResult == nil {
		return Result{}, fmt.Errorf("%w: missing codeResult", ErrMalformedResult)
	}
	return r, nil
}

// Adapter forwards decoder detections to a Pipeline.
type Adapter struct {
	pipeline Pipeline
	clock    func() time.Time
	logger   logger.Logger
}

// New creates an adapter for p.
func New(p Pipeline, opts ...Option) *Adapter {
	a := &Adapter{
		pipeline: p,
		clock:    time.Now,
		logger:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// OnDetected handles one detection callback. A result without a code result
// is treated as an empty detection and reported as invalid by the pipeline.
func (a *Adapter) OnDetected(ctx context.Context, r Result) model.Signal {
	var raw model.RawDetection
	if r.CodeResult != nil {
		raw = model.RawDetection{Code: r.CodeResult.Code, Format: r.CodeResult.Format}
	}
	return a.pipeline.HandleDetection(ctx, raw, a.clock())
}

// ReportError logs a camera failure and returns the text shown to the user.
func (a *Adapter) ReportError(ctx context.Context, name, message string) string {
	text := DescribeError(name, message)
	metrics.RecordDecoderError(name)
	a.logger.Warn(ctx, "camera error",
		logger.String("name", name),
		logger.String("message", message),
		logger.String("user_message", text),
	)
	return text
}

// Camera failure names reported by the browser media API.
const (
	NotAllowedError      = "NotAllowedError"
	NotFoundError        = "NotFoundError"
	NotReadableError     = "NotReadableError"
	OverconstrainedError = "OverconstrainedError"
)

// DescribeError maps a camera failure to user-facing text.
func DescribeError(name, message string) string {
	switch name {
	case NotAllowedError:
		return "Camera permission denied"
	case NotFoundError:
		return "No camera found"
	case NotReadableError:
		return "Camera is in use by another application"
	case OverconstrainedError:
		return "Camera constraints could not be satisfied"
	}
	if strings.TrimSpace(message) == "" {
		message = "Unknown error"
	}
	return "Error: " + message
}

var readers = []string{"code_128_reader", "code_39_reader", "i2of5_reader"}

// Readers returns the decoder symbologies scanners should enable.
func Readers() []string {
	out := make([]string, len(readers))
	copy(out, readers)
	return out
}
