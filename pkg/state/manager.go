package state

import (
	"log/slog"
	"sync"

	"github.com/imago-dev/imago/pkg/event"
)

// MaxHistory is the number of snapshots kept by a PageStateManager.
const MaxHistory = 10

// Dispatcher events fired around every state change.
const (
	EventBeforeChangeState = "$IMA.$PageStateManager.beforeChangeState"
	EventAfterChangeState  = "$IMA.$PageStateManager.afterChangeState"
)

// ChangeEvent is the data fired with EventBeforeChangeState and
// EventAfterChangeState. OldState and Patch are empty after the change.
type ChangeEvent struct {
	OldState State
	NewState State
	Patch    State
}

// Manager is the contract shared by the page state manager and its scoped
// decorators.
type Manager interface {
	// Clear drops the history.
	Clear()

	// SetState merges patch into the current state as a new snapshot.
	SetState(patch State) error

	// GetState returns the newest snapshot, or an empty State.
	GetState() State

	// GetAllStates returns the history, oldest first.
	GetAllStates() []State

	// BeginTransaction starts queueing patches instead of applying them.
	BeginTransaction()

	// CommitTransaction applies all queued patches as one snapshot.
	CommitTransaction() error

	// CancelTransaction drops the queued patches.
	CancelTransaction()

	// TransactionPatches returns the queued patches.
	TransactionPatches() []State
}

// PageStateManager keeps a bounded history of page state snapshots.
type PageStateManager struct {
	mu         sync.Mutex
	applyMu    sync.Mutex // serializes read-merge-push in apply
	states     []State
	cursor     int
	dispatcher *event.Dispatcher
	onChange   func(State)
	inTx       bool
	txPatches  []State
	logger     *slog.Logger
}

// NewPageStateManager creates an empty manager. The dispatcher may be nil.
func NewPageStateManager(dispatcher *event.Dispatcher, logger *slog.Logger) *PageStateManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageStateManager{
		cursor:     -1,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// OnChange sets the callback invoked with the new state after each change.
// Pass nil to remove it.
func (m *PageStateManager) OnChange(fn func(State)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Clear drops the history and any open transaction.
func (m *PageStateManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = nil
	m.cursor = -1
	m.inTx = false
	m.txPatches = nil
}

// SetState merges patch into the current state and pushes the result as the
// newest snapshot. Inside a transaction the patch is queued instead.
func (m *PageStateManager) SetState(patch State) error {
	m.mu.Lock()
	if m.inTx {
		m.txPatches = append(m.txPatches, patch.Clone())
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	m.apply(patch)
	return nil
}

func (m *PageStateManager) apply(patch State) {
	m.applyMu.Lock()
	defer m.applyMu.Unlock()

	oldState := m.GetState()
	newState := Merge(oldState, patch)

	if m.dispatcher != nil {
		m.dispatcher.Fire(EventBeforeChangeState, ChangeEvent{
			OldState: oldState,
			NewState: newState,
			Patch:    patch,
		}, true)
	}

	m.mu.Lock()
	m.push(newState)
	onChange := m.onChange
	m.mu.Unlock()

	if onChange != nil {
		onChange(newState.Clone())
	}

	if m.dispatcher != nil {
		m.dispatcher.Fire(EventAfterChangeState, ChangeEvent{NewState: newState}, true)
	}
}

func (m *PageStateManager) push(s State) {
	m.states = append(m.states, s)
	if len(m.states) > MaxHistory {
		m.states = append(m.states[:0:0], m.states[len(m.states)-MaxHistory:]...)
	}
	m.cursor = len(m.states) - 1
}

// GetState returns a copy of the newest snapshot, or an empty State.
func (m *PageStateManager) GetState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor < 0 {
		return State{}
	}
	return m.states[m.cursor].Clone()
}

// GetAllStates returns copies of all snapshots, oldest first.
func (m *PageStateManager) GetAllStates() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]State, len(m.states))
	for i, s := range m.states {
		out[i] = s.Clone()
	}
	return out
}

// BeginTransaction starts queueing patches. Starting a transaction while one
// is open discards the open one.
func (m *PageStateManager) BeginTransaction() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inTx {
		m.logger.Warn("state: transaction already in progress, discarding queued patches",
			"patches", len(m.txPatches))
	}
	m.inTx = true
	m.txPatches = nil
}

// CommitTransaction applies the queued patches as a single snapshot.
func (m *PageStateManager) CommitTransaction() error {
	m.mu.Lock()
	if !m.inTx {
		m.mu.Unlock()
		m.logger.Warn("state: commit without an open transaction")
		return nil
	}
	patches := m.txPatches
	m.inTx = false
	m.txPatches = nil
	m.mu.Unlock()

	if len(patches) == 0 {
		return nil
	}
	m.apply(Merge(State{}, patches...))
	return nil
}

// CancelTransaction drops the queued patches.
func (m *PageStateManager) CancelTransaction() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inTx = false
	m.txPatches = nil
}

// TransactionPatches returns copies of the queued patches.
func (m *PageStateManager) TransactionPatches() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]State, len(m.txPatches))
	for i, p := range m.txPatches {
		out[i] = p.Clone()
	}
	return out
}
