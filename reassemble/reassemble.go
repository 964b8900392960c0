// SPDX-License-Identifier: MIT

package reassemble

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/lvmcmc/autocorr"
	"github.com/katalvlaran/lvmcmc/backend"
	"github.com/katalvlaran/lvmcmc/settings"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Options tunes FromBackend.
type Options struct {
	Discard int
	Thin    int // 0 ⇒ AutoThin
	Logger  *zap.Logger
}

// Result is a reassembled session.
type Result struct {
	Samples  *Samples
	Thin     int
	Reliable bool // false when AutoThin fell back to 1
}

// AutoThin derives a thinning stride from the full stored chain.
// reliable is false when the estimate was unavailable and thin fell back to 1.
func AutoThin(b backend.Backend, logger *zap.Logger) (thin int, reliable bool) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := b.Chain(0, 1)
	if err != nil {
		logger.Warn("autocorrelation time unavailable, setting thinning to 1", zap.Error(err))
		return 1, false
	}
	tau, err := autocorr.IntegratedTime(c, autocorr.Options{})
	if err != nil {
		var ae *autocorr.Error
		if errors.As(err, &ae) {
			logger.Warn("chain is shorter than 50 times the integrated autocorrelation time; "+
				"use this estimate with caution and run a longer chain, setting thinning to 1",
				zap.Float64s("tau", ae.Tau),
				zap.Int("iterations", ae.Steps))
		} else {
			logger.Warn("autocorrelation time unavailable, setting thinning to 1", zap.Error(err))
		}
		return 1, false
	}

	thin = int(math.Max(1, math.Round(0.5*floats.Max(tau))))
	logger.Info("chain is longer than 50 times the integrated autocorrelation time",
		zap.Float64s("tau", tau),
		zap.Int("thin", thin))

	return thin, true
}

// FromBackend reassembles the stored chain using the shape table in doc and
// merges doc's remaining fields. When discard and thinning leave no draws,
// every parameter gets empty series.
func FromBackend(b backend.Backend, doc *settings.Document, opts Options) (Result, error) {
	if doc == nil || doc.Shapes() == nil {
		return Result{}, fmt.Errorf("FromBackend: %w", ErrNoShapes)
	}
	res := Result{Thin: opts.Thin, Reliable: true}
	if res.Thin <= 0 {
		res.Thin, res.Reliable = AutoThin(b, opts.Logger)
	}

	c, err := b.Chain(opts.Discard, res.Thin)
	if err != nil {
		return Result{}, fmt.Errorf("FromBackend: %w", err)
	}
	var s *Samples
	if c.Steps() == 0 {
		if opts.Logger != nil {
			opts.Logger.Warn("no draws retained after discard and thinning",
				zap.Int("iterations", b.Iteration()),
				zap.Int("discard", opts.Discard),
				zap.Int("thin", res.Thin))
		}
		if err = doc.Shapes().Validate(c.Dims()); err != nil {
			return Result{}, fmt.Errorf("FromBackend: %w", err)
		}
		s = empty(doc.Shapes())
	} else {
		flat, err := c.Flat()
		if err != nil {
			return Result{}, fmt.Errorf("FromBackend: discard=%d thin=%d: %w", opts.Discard, res.Thin, err)
		}
		if s, err = Flat(flat, doc.Shapes()); err != nil {
			return Result{}, fmt.Errorf("FromBackend: %w", err)
		}
	}
	if err = s.Merge(doc.Fields()); err != nil {
		return Result{}, fmt.Errorf("FromBackend: %w", err)
	}
	res.Samples = s

	return res, nil
}
