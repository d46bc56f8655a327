package crawler

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/BenjaminSRussell/sitemirror/internal/types"
	"github.com/rs/zerolog"
)

// SafeProcessor runs per-page work with panic recovery so one bad page
// cannot end the run
type SafeProcessor struct {
	logger     zerolog.Logger
	panicCount atomic.Int64
}

// NewSafeProcessor creates a safe processor wrapper
func NewSafeProcessor(logger zerolog.Logger) *SafeProcessor {
	return &SafeProcessor{logger: logger}
}

// Process calls fn, turning a panic into an error
func (sp *SafeProcessor) Process(link types.Link, fn func() (*types.PageResult, error)) (result *types.PageResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			sp.panicCount.Add(1)

			sp.logger.Error().
				Str("url", link.URL).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("panic while processing page")

			result = nil
			err = fmt.Errorf("panic during processing: %v", r)
		}
	}()

	return fn()
}

// PanicCount returns total number of panics recovered
func (sp *SafeProcessor) PanicCount() int64 {
	return sp.panicCount.Load()
}
