// Package timeouts defines shared timeout constants.
package timeouts

import "time"

// OTelShutdown limits how long a command waits for pending spans to flush.
const OTelShutdown = 5 * time.Second

// Command caps a single CLI command, covering storage open, the operation
// and close.
const Command = 30 * time.Second
