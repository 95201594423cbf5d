package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/poly4/fpl-analsyer-sub000/internal/metrics"
)

// --- Command types ---

type engineCmd interface{ engineCmd() }

type computeCmd struct {
	req     Request
	replyCh chan Response
}

func (computeCmd) engineCmd() {}

type stopCmd struct {
	doneCh chan struct{}
}

func (stopCmd) engineCmd() {}

// --- Engine ---

// Engine runs the projection computations in its own goroutine. All engine
// state (params, RNG) is owned by that goroutine and reachable only through
// message passing, so a failing request cannot corrupt the caller or any
// other in-flight request.
type Engine struct {
	cmdCh  chan engineCmd
	params Params
	rng    *rand.Rand
}

// Option configures an Engine before Start.
type Option func(*Engine)

// WithParams overrides the modelling constants.
func WithParams(p Params) Option {
	return func(e *Engine) { e.params = p }
}

// WithTrials overrides only the default simulation trial count.
func WithTrials(n int) Option {
	return func(e *Engine) { e.params.DefaultTrials = n }
}

// WithRandSource seeds the simulation RNG; tests use a fixed seed.
func WithRandSource(src rand.Source) Option {
	return func(e *Engine) { e.rng = rand.New(src) }
}

// NewEngine creates an engine with production parameters. Call Start before
// submitting requests.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		cmdCh:  make(chan engineCmd, 64),
		params: DefaultParams(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the compute goroutine.
func (e *Engine) Start() {
	go e.run()
}

func (e *Engine) run() {
	for cmd := range e.cmdCh {
		switch c := cmd.(type) {
		case computeCmd:
			c.replyCh <- e.handle(c.req)
		case stopCmd:
			close(c.doneCh)
			return
		}
	}
}

// handle produces exactly one response for one request. A panicking handler
// is recovered into an ERROR response for that request only.
func (e *Engine) handle(req Request) (resp Response) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.ProjectionPanicsTotal.Inc()
			slog.Error("Projection handler panicked", "operation", req.Type, "panic", r)
			resp = errorResponse(req.ID, fmt.Errorf("compute failed: %v", r))
		}
		result := ResponseSuccess
		if resp.Type == ResponseError {
			result = ResponseError
		}
		metrics.ProjectionRequestsTotal.WithLabelValues(string(req.Type), result).Inc()
		metrics.ProjectionDuration.WithLabelValues(string(req.Type)).Observe(time.Since(start).Seconds())
	}()

	switch req.Type {
	case OpExpectedPoints:
		var in ExpectedPointsInput
		if err := json.Unmarshal(req.Data, &in); err != nil {
			return errorResponse(req.ID, fmt.Errorf("invalid %s payload: %w", req.Type, err))
		}
		return successResponse(req.ID, expectedPoints(in, e.params))

	case OpTeamStats:
		var in TeamStatsInput
		if err := json.Unmarshal(req.Data, &in); err != nil {
			return errorResponse(req.ID, fmt.Errorf("invalid %s payload: %w", req.Type, err))
		}
		return successResponse(req.ID, teamStats(in))

	case OpDifferential:
		var in DifferentialInput
		if err := json.Unmarshal(req.Data, &in); err != nil {
			return errorResponse(req.ID, fmt.Errorf("invalid %s payload: %w", req.Type, err))
		}
		return successResponse(req.ID, differential(in))

	case OpSimulateMatch:
		var in SimulateMatchInput
		if err := json.Unmarshal(req.Data, &in); err != nil {
			return errorResponse(req.ID, fmt.Errorf("invalid %s payload: %w", req.Type, err))
		}
		return successResponse(req.ID, simulateMatch(in, e.params, e.rng))

	default:
		return errorResponse(req.ID, fmt.Errorf("unknown operation %q", req.Type))
	}
}

func successResponse(id uuid.UUID, result any) Response {
	data, err := json.Marshal(result)
	if err != nil {
		return errorResponse(id, fmt.Errorf("failed to encode result: %w", err))
	}
	return Response{ID: id, Type: ResponseSuccess, Data: data}
}

func errorResponse(id uuid.UUID, err error) Response {
	return Response{ID: id, Type: ResponseError, Error: err.Error()}
}

// --- Public API ---

// Compute submits a request and blocks until its response arrives or ctx
// expires. The engine applies no timeout of its own: bounding the wait is
// the caller's responsibility. A zero request ID is assigned one, and the
// response always echoes the request's ID.
func (e *Engine) Compute(ctx context.Context, req Request) (Response, error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	replyCh := make(chan Response, 1)
	select {
	case e.cmdCh <- computeCmd{req: req, replyCh: replyCh}:
	case <-ctx.Done():
		return Response{}, fmt.Errorf("compute request not accepted: %w", ctx.Err())
	}

	select {
	case resp := <-replyCh:
		return resp, nil
	case <-ctx.Done():
		return Response{}, fmt.Errorf("compute request abandoned: %w", ctx.Err())
	}
}

// Stop shuts the compute goroutine down after the current request.
func (e *Engine) Stop() {
	doneCh := make(chan struct{})
	e.cmdCh <- stopCmd{doneCh: doneCh}
	<-doneCh
}
