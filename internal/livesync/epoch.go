package livesync

import "sync/atomic"

// EpochStream issues increasing request ids for one logical operation
// stream. A result may be applied only while its epoch is current.
type EpochStream struct {
	n atomic.Uint64
}

// Begin mints a new epoch and makes it current.
func (s *EpochStream) Begin() uint64 {
	return s.n.Add(1)
}

// IsCurrent reports whether epoch is the latest one issued.
func (s *EpochStream) IsCurrent(epoch uint64) bool {
	return s.n.Load() == epoch
}

// Current returns the latest epoch, 0 before the first Begin.
func (s *EpochStream) Current() uint64 {
	return s.n.Load()
}
