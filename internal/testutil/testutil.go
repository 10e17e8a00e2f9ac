// Package testutil provides shared skip helpers and WAV assertions for tests.
//
// Each skip helper calls tb.Skip with a clear human-readable reason when the
// named prerequisite is absent, so hardware tests remain runnable in partial
// environments without failing noisily.
//
// Typical usage:
//
//	func TestCaptureFromDevice(t *testing.T) {
//	    testutil.RequireAudioDevice(t, driver.RX)
//	    ...
//	}
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/go-i2s-audio/internal/driver"
)

// DeviceTestsEnv enables tests that open the host audio device.
const DeviceTestsEnv = "I2SAUDIO_DEVICE_TESTS"

// RequireAudioDevice skips the test unless DeviceTestsEnv is set and the host
// has at least one device for mode.
func RequireAudioDevice(tb testing.TB, mode driver.Mode) {
	tb.Helper()

	if os.Getenv(DeviceTestsEnv) == "" {
		tb.Skipf("audio device tests disabled; set %s=1 to enable", DeviceTestsEnv)
		return
	}

	names, err := driver.ListDevices(mode)
	if err != nil {
		tb.Skipf("audio backend not available: %v", err)
		return
	}

	if len(names) == 0 {
		tb.Skipf("no %s audio device found", mode)
	}
}

// RequireFixture skips the test if the named file under testdata/ is missing
// and returns its path otherwise.
func RequireFixture(tb testing.TB, name string) string {
	tb.Helper()

	p := filepath.Join("testdata", name)
	if _, err := os.Stat(p); err != nil {
		tb.Skipf("fixture %q not available: %v", p, err)
	}

	return p
}
