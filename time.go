package stepflow

import "time"

// defaultNowMillis is the clock used for ExecutionContext.Timestamp when a
// runState isn't given an explicit now func (tests supply a deterministic
// one; see store's TTL-bearing implementations for the production analog).
func defaultNowMillis() int64 {
	return time.Now().UnixMilli()
}
