package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(symbol|trade_num|entry_time_ms)
// Returns hex-encoded hash (64 characters). The run ID is deliberately
// excluded so that replaying the same bars yields identical IDs.
func ComputeTradeID(symbol string, tradeNum int, entryTimeMs int64) string {
	data := fmt.Sprintf("%s|%d|%d", symbol, tradeNum, entryTimeMs)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
