package txn

import (
	"encoding/hex"
	"time"
)

func nowMillis() int64 { return time.Now().UnixMilli() }

func hexEncode(b [32]byte) string { return hex.EncodeToString(b[:]) }
