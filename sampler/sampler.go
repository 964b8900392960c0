// SPDX-License-Identifier: MIT

package sampler

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/lvmcmc/autocorr"
	"github.com/katalvlaran/lvmcmc/backend"
	"github.com/katalvlaran/lvmcmc/chain"
	"github.com/katalvlaran/lvmcmc/matrix"
	"github.com/katalvlaran/lvmcmc/objective"
	"github.com/katalvlaran/lvmcmc/perturb"
	"github.com/katalvlaran/lvmcmc/pool"
	"github.com/katalvlaran/lvmcmc/rng"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

var (
	// ErrConfig indicates an invalid construction argument.
	ErrConfig = errors.New("sampler: invalid configuration")

	// ErrNotStarted indicates Step before Start.
	ErrNotStarted = errors.New("sampler: Start must be called before Step")

	// ErrInitialState indicates initial positions that are degenerate or have a
	// non-finite log-probability.
	ErrInitialState = errors.New("sampler: invalid initial state")

	// ErrNaNLogProb indicates the objective returned NaN for a proposal.
	ErrNaNLogProb = errors.New("sampler: log-probability is NaN")
)

// Options tunes New.
type Options struct {
	Moves  []WeightedMove // nil ⇒ DefaultMoves
	Seed   uint64         // 0 ⇒ rng.DefaultSeed
	Logger *zap.Logger
}

// Sampler is an ensemble sampler bound to one backend and one pool.
type Sampler struct {
	nwalkers int
	ndim     int
	obj      objective.Objective
	store    backend.Backend
	pool     *pool.Pool
	moves    []WeightedMove
	total    float64
	rnd      *rand.Rand
	logger   *zap.Logger

	pos [][]float64
	lp  []float64
}

// New validates the ensemble shape and move mix.
func New(nwalkers, ndim int, obj objective.Objective, b backend.Backend, p *pool.Pool, opts Options) (*Sampler, error) {
	switch {
	case ndim < 1 || nwalkers < 2*ndim:
		return nil, fmt.Errorf("New: %d walkers for %d dims, need at least 2 per dim: %w", nwalkers, ndim, ErrConfig)
	case obj == nil || b == nil || p == nil:
		return nil, fmt.Errorf("New: objective, backend and pool are required: %w", ErrConfig)
	}
	moves := opts.Moves
	if moves == nil {
		moves = DefaultMoves()
	}
	total := 0.0
	for _, m := range moves {
		if m.Move == nil || !(m.Weight > 0) {
			return nil, fmt.Errorf("New: move weights must be positive: %w", ErrConfig)
		}
		if c := nwalkers / 2; c < m.Move.MinComplement() {
			return nil, fmt.Errorf("New: move %q needs %d complementary walkers, have %d: %w",
				m.Move.Name(), m.Move.MinComplement(), c, ErrConfig)
		}
		total += m.Weight
	}
	if len(moves) == 0 {
		return nil, fmt.Errorf("New: no moves: %w", ErrConfig)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sampler{
		nwalkers: nwalkers,
		ndim:     ndim,
		obj:      obj,
		store:    b,
		pool:     p,
		moves:    moves,
		total:    total,
		rnd:      rng.New(opts.Seed),
		logger:   logger,
	}, nil
}

// NWalkers returns W.
func (s *Sampler) NWalkers() int { return s.nwalkers }

// NDim returns D.
func (s *Sampler) NDim() int { return s.ndim }

// Backend returns the chain store.
func (s *Sampler) Backend() backend.Backend { return s.store }

// Start sets the current ensemble state. The positions must be well
// conditioned and every walker must have a finite log-probability.
func (s *Sampler) Start(ctx context.Context, pos *matrix.Dense) error {
	if err := matrix.ValidateNotNil(pos); err != nil {
		return fmt.Errorf("Start: %w", err)
	}
	if pos.Rows() != s.nwalkers || pos.Cols() != s.ndim {
		return fmt.Errorf("Start: positions %dx%d, want %dx%d: %w", pos.Rows(), pos.Cols(), s.nwalkers, s.ndim, ErrInitialState)
	}
	cond, err := perturb.Condition(pos)
	if err != nil {
		return fmt.Errorf("Start: %w", err)
	}
	if math.IsInf(cond, 1) {
		return fmt.Errorf("Start: walkers are not linearly independent: %w", ErrInitialState)
	}

	rows := pos.RowsView()
	lp, err := s.pool.Map(ctx, s.obj.LogProb, rows)
	if err != nil {
		return fmt.Errorf("Start: %w", err)
	}
	for w, v := range lp {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("Start: walker %d has log-probability %g: %w", w, v, ErrInitialState)
		}
	}
	s.pos, s.lp = rows, lp

	return nil
}

// Iteration returns the number of iterations stored in the backend.
func (s *Sampler) Iteration() int { return s.store.Iteration() }

// Step advances the ensemble by one iteration and persists it.
func (s *Sampler) Step(ctx context.Context) error {
	if s.pos == nil {
		return fmt.Errorf("Step: %w", ErrNotStarted)
	}
	move := s.pickMove()

	inds := make([]int, s.nwalkers)
	for i := range inds {
		inds[i] = i % 2
	}
	s.rnd.Shuffle(len(inds), func(i, j int) { inds[i], inds[j] = inds[j], inds[i] })

	accepted := make([]bool, s.nwalkers)
	for split := 0; split < 2; split++ {
		var active []int
		var sPos, cPos [][]float64
		for w, half := range inds {
			if half == split {
				active = append(active, w)
				sPos = append(sPos, s.pos[w])
			} else {
				cPos = append(cPos, s.pos[w])
			}
		}
		if len(active) == 0 {
			continue
		}

		q, factors := move.Propose(s.rnd, sPos, cPos)
		newLP, err := s.pool.Map(ctx, s.obj.LogProb, q)
		if err != nil {
			return fmt.Errorf("Step: %w", err)
		}
		for i, w := range active {
			if math.IsNaN(newLP[i]) {
				return fmt.Errorf("Step: walker %d: %w", w, ErrNaNLogProb)
			}
			diff := factors[i] + newLP[i] - s.lp[w]
			if math.Log(s.rnd.Float64()) < diff {
				s.pos[w], s.lp[w] = q[i], newLP[i]
				accepted[w] = true
			}
		}
	}

	positions, err := matrix.NewDenseFromRows(s.pos)
	if err != nil {
		return fmt.Errorf("Step: %w", err)
	}
	if err = s.store.Append(chain.Step{
		Positions: positions,
		LogProb:   append([]float64(nil), s.lp...),
		Accepted:  accepted,
	}); err != nil {
		return fmt.Errorf("Step: %w", err)
	}
	s.logger.Debug("step",
		zap.Int("iteration", s.store.Iteration()),
		zap.String("move", move.Name()))

	return nil
}

func (s *Sampler) pickMove() Move {
	if len(s.moves) == 1 {
		return s.moves[0].Move
	}
	x := s.rnd.Float64() * s.total
	for _, m := range s.moves {
		if x < m.Weight {
			return m.Move
		}
		x -= m.Weight
	}

	return s.moves[len(s.moves)-1].Move
}

// Chain returns the stored chain after discard/thin.
func (s *Sampler) Chain(discard, thin int) (*chain.Chain, error) {
	return s.store.Chain(discard, thin)
}

// AutocorrTime estimates τ on the stored chain after discard/thin. It returns
// an *autocorr.Error when the chain is too short for a reliable estimate.
func (s *Sampler) AutocorrTime(discard, thin int, opts autocorr.Options) ([]float64, error) {
	c, err := s.store.Chain(discard, thin)
	if err != nil {
		return nil, fmt.Errorf("AutocorrTime: %w", err)
	}

	return autocorr.IntegratedTime(c, opts)
}

// AcceptanceFraction returns the per-walker fraction of accepted proposals.
func (s *Sampler) AcceptanceFraction() []float64 {
	return backend.AcceptanceFraction(s.store)
}
