// Package dblock serialises Postgres integration tests across test binaries
// by holding a loopback listener as a cross-process mutex.
package dblock

import (
	"net"
	"os"
	"time"
)

const defaultLockAddr = "127.0.0.1:45432"

// Acquire blocks until the lock is free and returns its release function.
// WHEELBET_TEST_DB_LOCK overrides the lock address.
func Acquire() func() {
	addr := os.Getenv("WHEELBET_TEST_DB_LOCK")
	if addr == "" {
		addr = defaultLockAddr
	}
	for {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return func() { _ = ln.Close() }
		}
		time.Sleep(50 * time.Millisecond)
	}
}
