package hsmx

import (
	"sync"
)

// HistoryManager records the state a machine was in when it was paused, so the
// next resuming entry can restore it instead of replaying the start state.
// Machines without retention rules never appear here.
//
// Retention is shallow per machine. Deep retention follows when nested machines
// retain on the same events, since each one records itself on the way out.
type HistoryManager struct {
	mu      sync.RWMutex
	shallow map[MachineRef]StateID
}

// NewHistoryManager creates an empty HistoryManager.
func NewHistoryManager() *HistoryManager {
	return &HistoryManager{
		shallow: make(map[MachineRef]StateID),
	}
}

// Record stores the active state of machine at the moment it is paused.
func (h *HistoryManager) Record(machine MachineRef, active StateID) {
	if active == NoState {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shallow[machine] = active
}

// Restore returns the recorded state for machine, if any.
func (h *HistoryManager) Restore(machine MachineRef) (StateID, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	id, ok := h.shallow[machine]
	return id, ok
}

// Clear forgets the recorded state for machine.
func (h *HistoryManager) Clear(machine MachineRef) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.shallow, machine)
}

// Len returns the number of machines holding a recorded state.
func (h *HistoryManager) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.shallow)
}
