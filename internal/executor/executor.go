// Package executor models the delegated batch-execution contract: a
// signature-gated state machine that forwards ordered sub-calls once an
// EOA's delegation is active. State transitions are all-or-nothing; a
// failure anywhere in an invocation leaves admin, allow-list, and nonce
// state untouched.
package executor

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cyphera/delegation-relay/internal/signing"
)

// AdminChangedEvent records an admin handover. Old is the zero address
// for the initial assignment.
type AdminChangedEvent struct {
	Old common.Address
	New common.Address
}

// CallerUpdatedEvent records one allow-list mutation.
type CallerUpdatedEvent struct {
	Caller  common.Address
	Allowed bool
}

// BatchExecutedEvent records a completed batch: the recovered signer, the
// party that submitted the invocation, and per-call results in execution
// order.
type BatchExecutedEvent struct {
	Signer    common.Address
	Submitter common.Address
	Calls     []Call
	Results   []CallResult
}

// Executor is the state machine. The host ledger would serialize
// invocations globally; outside that environment a mutex provides the
// same guarantee, making the nonce check-then-set sequence atomic.
type Executor struct {
	mu sync.Mutex

	initialized    bool
	admin          common.Address
	allowedCallers map[common.Address]bool
	usedNonces     map[uint64]bool

	invoker       Invoker
	now           func() uint64
	openExecution bool
	log           *zap.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithClock overrides the timestamp source used for deadline checks.
func WithClock(now func() uint64) Option {
	return func(e *Executor) { e.now = now }
}

// WithOpenExecution disables signature gating on ExecuteBatch: any
// submitter may run any batch. This exists only to demonstrate why the
// gate matters. Never enable it against real funds.
func WithOpenExecution() Option {
	return func(e *Executor) { e.openExecution = true }
}

// New returns an uninitialized executor forwarding calls through inv.
func New(inv Invoker, log *zap.Logger, opts ...Option) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Executor{
		allowedCallers: make(map[common.Address]bool),
		usedNonces:     make(map[uint64]bool),
		invoker:        inv,
		now:            func() uint64 { return uint64(time.Now().Unix()) },
		log:            log,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.openExecution {
		e.log.Warn("executor running with open execution: batch signature gating is DISABLED")
	}
	return e
}

// Admin returns the current admin address.
func (e *Executor) Admin() common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.admin
}

// IsAllowedCaller reports whether addr may sign batches.
func (e *Executor) IsAllowedCaller(addr common.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.allowedCallers[addr]
}

// IsNonceUsed reports whether nonce has been consumed.
func (e *Executor) IsNonceUsed(nonce uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.usedNonces[nonce]
}

// Initialize moves the executor from Uninitialized to Initialized and
// assigns the admin. It succeeds exactly once.
func (e *Executor) Initialize(admin common.Address) (AdminChangedEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return AdminChangedEvent{}, ErrAlreadyInitialized
	}
	e.initialized = true
	e.admin = admin
	e.log.Info("executor initialized", zap.String("admin", admin.Hex()))
	return AdminChangedEvent{Old: common.Address{}, New: admin}, nil
}

// SetAdmin rotates the admin. The request must be signed (prefixed-message
// scheme) by the current admin over AdminChangeHash(newAdmin, nonce,
// deadline). Check order: initialized, deadline, nonce, signature; the
// nonce is consumed only when every check passes.
func (e *Executor) SetAdmin(newAdmin common.Address, nonce, deadline uint64, sig []byte) (AdminChangedEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkGate(nonce, deadline); err != nil {
		return AdminChangedEvent{}, err
	}
	digest, err := AdminChangeHash(newAdmin, nonce, deadline)
	if err != nil {
		return AdminChangedEvent{}, err
	}
	signer, err := signing.RecoverMessage(digest, sig)
	if err != nil {
		return AdminChangedEvent{}, errors.Wrap(ErrInvalidSignature, err.Error())
	}
	if signer != e.admin {
		return AdminChangedEvent{}, errors.Wrapf(ErrInvalidSignature, "signer %s is not admin", signer.Hex())
	}
	e.usedNonces[nonce] = true
	old := e.admin
	e.admin = newAdmin
	e.log.Info("admin rotated",
		zap.String("old", old.Hex()),
		zap.String("new", newAdmin.Hex()),
	)
	return AdminChangedEvent{Old: old, New: newAdmin}, nil
}

// UpdateCallers applies allow-list mutations. callers[i] is granted or
// revoked per isAdding[i]. The request must be signed by the admin over
// CallerUpdateHash. Check order: array lengths, initialized, deadline,
// nonce, signature.
func (e *Executor) UpdateCallers(callers []common.Address, isAdding []bool, nonce, deadline uint64, sig []byte) ([]CallerUpdatedEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(callers) != len(isAdding) {
		return nil, ErrArrayLengthMismatch
	}
	if err := e.checkGate(nonce, deadline); err != nil {
		return nil, err
	}
	digest, err := CallerUpdateHash(callers, isAdding, nonce, deadline)
	if err != nil {
		return nil, err
	}
	signer, err := signing.RecoverMessage(digest, sig)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidSignature, err.Error())
	}
	if signer != e.admin {
		return nil, errors.Wrapf(ErrInvalidSignature, "signer %s is not admin", signer.Hex())
	}
	e.usedNonces[nonce] = true
	events := make([]CallerUpdatedEvent, 0, len(callers))
	for i, caller := range callers {
		if isAdding[i] {
			e.allowedCallers[caller] = true
		} else {
			delete(e.allowedCallers, caller)
		}
		events = append(events, CallerUpdatedEvent{Caller: caller, Allowed: isAdding[i]})
		e.log.Info("caller updated",
			zap.String("caller", caller.Hex()),
			zap.Bool("allowed", isAdding[i]),
		)
	}
	return events, nil
}

// ExecuteBatch verifies the batch request and forwards every call in
// order. The batch signer (recovered from the prefixed-message signature
// over BatchHash) must be in the allow-list. If any call reverts or
// reports failure the whole invocation aborts: the nonce stays unused
// and no executor state changes; rollback of the forwarded calls'
// external effects is the host environment's commit boundary.
//
// submitter identifies the party invoking the executor (the relayer, in
// the sponsored flow) and is recorded in the emitted event.
func (e *Executor) ExecuteBatch(ctx context.Context, submitter common.Address, calls []Call, nonce, deadline uint64, sig []byte) (BatchExecutedEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkGate(nonce, deadline); err != nil {
		return BatchExecutedEvent{}, err
	}

	var signer common.Address
	if e.openExecution {
		// Demonstration mode: no signer check at all.
		signer = submitter
	} else {
		digest, err := BatchHash(calls, nonce, deadline)
		if err != nil {
			return BatchExecutedEvent{}, err
		}
		signer, err = signing.RecoverMessage(digest, sig)
		if err != nil {
			return BatchExecutedEvent{}, errors.Wrap(ErrInvalidSignature, err.Error())
		}
		if !e.allowedCallers[signer] {
			return BatchExecutedEvent{}, errors.Wrapf(ErrNotAllowedCaller, "signer %s", signer.Hex())
		}
	}

	results := make([]CallResult, 0, len(calls))
	for i, call := range calls {
		res, err := e.invoker.Invoke(ctx, call)
		if err != nil {
			return BatchExecutedEvent{}, errors.Wrapf(ErrCallFailed, "call %d to %s: %v", i, call.Target.Hex(), err)
		}
		if !res.Success {
			return BatchExecutedEvent{}, errors.Wrapf(ErrCallFailed, "call %d to %s reported failure", i, call.Target.Hex())
		}
		results = append(results, res)
	}

	e.usedNonces[nonce] = true
	e.log.Info("batch executed",
		zap.String("signer", signer.Hex()),
		zap.String("submitter", submitter.Hex()),
		zap.Int("calls", len(calls)),
		zap.Uint64("nonce", nonce),
	)
	return BatchExecutedEvent{
		Signer:    signer,
		Submitter: submitter,
		Calls:     calls,
		Results:   results,
	}, nil
}

// checkGate enforces the shared preconditions for nonce- and
// deadline-gated requests. Deadline equal to the current timestamp
// passes; one second earlier does not.
func (e *Executor) checkGate(nonce, deadline uint64) error {
	if !e.initialized {
		return ErrNotInitialized
	}
	if deadline < e.now() {
		return ErrDeadlineExpired
	}
	if e.usedNonces[nonce] {
		return ErrNonceAlreadyUsed
	}
	return nil
}
