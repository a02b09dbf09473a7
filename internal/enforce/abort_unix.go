//go:build unix

package enforce

import (
	"os"
	"runtime/debug"

	"github.com/machinae/procveil/internal/logging"
	"golang.org/x/sys/unix"
)

// abortProcess ends the process image at the point of violation: write
// the diagnostic report, lift the core limit as far as permitted, and
// raise SIGABRT against ourselves. No cleanup, no unwinding, no second
// chance; the termination is indistinguishable from a fatal trap.
func abortProcess(rep Report) {
	logging.Logger().Error("promise violation",
		"op", rep.Op,
		"path", rep.Path,
		"active", rep.Active,
	)
	rep.write()

	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_CORE, &lim); err == nil && lim.Cur < lim.Max {
		lim.Cur = lim.Max
		_ = unix.Setrlimit(unix.RLIMIT_CORE, &lim)
	}

	// The runtime's SIGABRT handler would otherwise swallow the signal
	// and exit(2); "crash" makes it re-raise with the default
	// disposition so the process really dies by SIGABRT.
	debug.SetTraceback("crash")
	_ = unix.Kill(unix.Getpid(), unix.SIGABRT)
	// Reached only if SIGABRT is blocked; still refuse to continue.
	os.Exit(134)
}
