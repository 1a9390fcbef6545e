package presentation

import (
	"errors"
	"sync"
	"time"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"
)

// ErrNoWallet is returned when copying a wallet that is not resolved.
var ErrNoWallet = errors.New("no wallet for chain")

const (
	copyKeySolana = "solana"
	copyKeyEVM    = "evm"
)

// CopyTracker copies wallet addresses to the clipboard and keeps the "copied"
// indicator of each chain. An indicator reverts after the feedback interval;
// Solana and EVM indicators are independent.
type CopyTracker struct {
	clipboard port.Clipboard
	feedback  time.Duration
	logger    port.Logger
	onChange  func()

	mu     sync.Mutex
	copied map[string]uint64 // chain key -> generation of the active indicator
	seq    uint64
	timers map[string]*time.Timer
}

// NewCopyTracker creates a tracker. onChange is called whenever an indicator flips.
func NewCopyTracker(cb port.Clipboard, feedback time.Duration, logger port.Logger, onChange func()) *CopyTracker {
	if feedback <= 0 {
		feedback = time.Second
	}
	return &CopyTracker{
		clipboard: cb,
		feedback:  feedback,
		logger:    logger,
		onChange:  onChange,
		copied:    make(map[string]uint64),
		timers:    make(map[string]*time.Timer),
	}
}

// Copy writes address to the clipboard without waiting for it and raises the chain's
// indicator. Clipboard failures are logged and otherwise ignored.
func (t *CopyTracker) Copy(chain entity.Chain, address string) error {
	if address == "" {
		return ErrNoWallet
	}
	key, ok := copyKey(chain)
	if !ok {
		return ErrNoWallet
	}

	go func() {
		if err := t.clipboard.WriteAll(address); err != nil {
			t.logger.Warn("Clipboard write failed", "chain", chain, "error", err)
		}
	}()

	t.mu.Lock()
	t.seq++
	gen := t.seq
	t.copied[key] = gen
	if old, exists := t.timers[key]; exists {
		old.Stop()
	}
	t.timers[key] = time.AfterFunc(t.feedback, func() { t.revert(key, gen) })
	t.mu.Unlock()

	t.changed()
	return nil
}

// Copied reports the indicator of both chains.
func (t *CopyTracker) Copied() CopiedPanel {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, sol := t.copied[copyKeySolana]
	_, evm := t.copied[copyKeyEVM]
	return CopiedPanel{Solana: sol, EVM: evm}
}

// Stop cancels pending reverts.
func (t *CopyTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, timer := range t.timers {
		timer.Stop()
		delete(t.timers, key)
	}
}

func (t *CopyTracker) revert(key string, gen uint64) {
	t.mu.Lock()
	if t.copied[key] != gen {
		// A later copy owns the indicator.
		t.mu.Unlock()
		return
	}
	delete(t.copied, key)
	delete(t.timers, key)
	t.mu.Unlock()
	t.changed()
}

func (t *CopyTracker) changed() {
	if t.onChange != nil {
		t.onChange()
	}
}

func copyKey(chain entity.Chain) (string, bool) {
	switch {
	case chain.IsSolana():
		return copyKeySolana, true
	case chain.IsEVM():
		return copyKeyEVM, true
	default:
		return "", false
	}
}
