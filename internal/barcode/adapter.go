package barcode

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"cardgen/internal/aamva"
	dErrors "cardgen/pkg/domain-errors"
)

// Adapter maps encoder output plus render parameters onto the engine and
// normalizes its failure modes. It performs no retries: rendering is
// deterministic for identical inputs, so retrying without changing
// parameters is pointless.
type Adapter struct {
	engine Engine
	logger *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// NewAdapter constructs a render adapter over the given engine.
func NewAdapter(engine Engine, opts ...Option) (*Adapter, error) {
	if engine == nil {
		return nil, errors.New("render engine is required")
	}
	a := &Adapter{engine: engine}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Render clamps the parameters into their valid ranges, invokes the engine,
// and returns the rendered image bytes unchanged on success. Engine failures
// come back as coded domain errors from the closed render taxonomy.
func (a *Adapter) Render(ctx context.Context, record aamva.EncodedRecord, errorCorrectionLevel, columns int) ([]byte, error) {
	opts := RenderOptions{
		ErrorCorrectionLevel: clamp(errorCorrectionLevel, minErrorCorrection, maxErrorCorrection),
		Columns:              clamp(columns, minColumns, maxColumns),
	}

	image, err := a.engine.RenderSymbol(ctx, string(record), opts)
	if err != nil {
		classified := Classify(err)
		if a.logger != nil {
			a.logger.WarnContext(ctx, "barcode render failed",
				"code", dErrors.CodeOf(classified),
				"eclevel", opts.ErrorCorrectionLevel,
				"columns", opts.Columns,
				"error", err.Error(),
			)
		}
		return nil, classified
	}
	return image, nil
}

// classificationRule pairs a lower-cased phrase from the engine's error text
// with the domain code it maps to. First match wins.
type classificationRule struct {
	phrase string
	code   dErrors.Code
}

var classificationRules = []classificationRule{
	{"value too long", dErrors.CodeCapacityExceeded},
	{"data too large", dErrors.CodeCapacityExceeded},
	{"capacity exceeded", dErrors.CodeCapacityExceeded},
	{"unknown eci", dErrors.CodeUnsupportedEncoding},
	{"bad ecc", dErrors.CodeInvalidRenderParameter},
	{"invalid ecc level", dErrors.CodeInvalidRenderParameter},
	{"invalid columns value", dErrors.CodeInvalidRenderParameter},
}

// Classify maps a raw engine error onto the closed render error taxonomy via
// case-insensitive substring matching. Unmatched messages become a generic
// render failure; the original message is preserved in the error chain for
// diagnostics either way.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "render engine timed out")
	}

	message := strings.ToLower(err.Error())
	for _, rule := range classificationRules {
		if strings.Contains(message, rule.phrase) {
			switch rule.code {
			case dErrors.CodeCapacityExceeded:
				return dErrors.Wrap(err, rule.code,
					"payload too large for the chosen parameters: reduce data or adjust columns/error-correction")
			case dErrors.CodeUnsupportedEncoding:
				return dErrors.Wrap(err, rule.code,
					"payload contains characters unsupported by the PDF417 encoding mode")
			default:
				return dErrors.Wrap(err, rule.code, "engine rejected render parameters")
			}
		}
	}
	return dErrors.Wrap(err, dErrors.CodeRenderFailure, "barcode rendering failed")
}
