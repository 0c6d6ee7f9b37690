package ledger

import (
	"context"
	"sync"
)

// MemoryLog is an in-process append-only Log.
type MemoryLog struct {
	mu  sync.RWMutex
	txs []Transaction
}

var _ Log = (*MemoryLog)(nil)

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (l *MemoryLog) Append(ctx context.Context, tx Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txs = append(l.txs, tx)
	return nil
}

func (l *MemoryLog) Recent(ctx context.Context, typeFilter string, limit int) ([]Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Transaction, 0, limit)
	for i := len(l.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if typeFilter != "" && l.txs[i].Type != typeFilter {
			continue
		}
		out = append(out, l.txs[i])
	}
	return out, nil
}
