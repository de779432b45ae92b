package app

import (
	"os"
	"sync/atomic"
)

// TestModeEnv disables servers and connections when set to "1". The root
// testing package sets it for binaries under test.
const TestModeEnv = "ODYSSEY_TEST_MODE"

// 0 unread, 1 off, 2 on.
var testMode atomic.Int32

// InTestMode reports whether main should return before touching the database.
func InTestMode() bool {
	if testMode.Load() == 0 {
		RefreshTestMode()
	}
	return testMode.Load() == 2
}

// RefreshTestMode re-reads the environment.
func RefreshTestMode() {
	if os.Getenv(TestModeEnv) == "1" {
		testMode.Store(2)
		return
	}
	testMode.Store(1)
}
