package btcwallet

import (
	"sync"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
)

// leaseManager reserves outputs while a spend of them is in flight or
// unconfirmed.
type leaseManager struct {
	clock  clock.Clock
	leases map[wire.OutPoint]time.Time
	mu     sync.RWMutex
}

// newLeaseManager creates a new lease manager.
func newLeaseManager(clk clock.Clock) *leaseManager {
	return &leaseManager{
		clock:  clk,
		leases: make(map[wire.OutPoint]time.Time),
	}
}

// Lease reserves all outpoints for the given duration. Either every
// outpoint is leased or none is.
func (m *leaseManager) Lease(outpoints []wire.OutPoint,
	duration time.Duration) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	for _, op := range outpoints {
		if expiry, ok := m.leases[op]; ok && now.Before(expiry) {
			return ErrUTXOLeased
		}
	}

	for _, op := range outpoints {
		m.leases[op] = now.Add(duration)
	}

	return nil
}

// Release drops the leases on all outpoints.
func (m *leaseManager) Release(outpoints []wire.OutPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	for _, op := range outpoints {
		if _, ok := m.leases[op]; !ok {
			err = ErrUTXONotLeased
			continue
		}
		delete(m.leases, op)
	}

	return err
}

// IsLeased checks if an outpoint is currently leased.
func (m *leaseManager) IsLeased(op wire.OutPoint) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	expiry, ok := m.leases[op]

	return ok && m.clock.Now().Before(expiry)
}

// CleanupExpired removes expired leases.
func (m *leaseManager) CleanupExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	for op, expiry := range m.leases {
		if !now.Before(expiry) {
			delete(m.leases, op)
		}
	}
}

// Leased returns all currently leased outpoints.
func (m *leaseManager) Leased() []wire.OutPoint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.clock.Now()
	leased := make([]wire.OutPoint, 0, len(m.leases))
	for op, expiry := range m.leases {
		if now.Before(expiry) {
			leased = append(leased, op)
		}
	}

	return leased
}

// size returns the number of leases held, expired or not.
func (m *leaseManager) size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.leases)
}

// expireLoop drops expired leases on every tick until quit is closed.
func (m *leaseManager) expireLoop(t ticker.Ticker, quit <-chan struct{}) {
	t.Resume()
	defer t.Stop()

	for {
		select {
		case <-t.Ticks():
			m.CleanupExpired()

		case <-quit:
			return
		}
	}
}
