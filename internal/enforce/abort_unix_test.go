//go:build unix

package enforce

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"testing"

	"github.com/machinae/procveil/internal/promise"
	"github.com/machinae/procveil/internal/unveil"
)

// The process-level tests re-exec the test binary as a restricted
// child and assert the wait status the parent observes: SIGABRT for a
// promise violation, plain exit code otherwise.

const helperModeEnvVar = "PROCVEIL_TEST_HELPER"

func TestHelperProcess(t *testing.T) {
	mode := os.Getenv(helperModeEnvVar)
	if mode == "" {
		t.Skip("helper process entry point")
	}

	state := promise.NewState()
	hook := NewHook(state, unveil.NewGraph())

	switch mode {
	case "violate":
		promises := "stdio"
		if err := state.Pledge(&promises, nil); err != nil {
			os.Exit(3)
		}
		// fork is outside stdio; this must never return.
		_ = hook.Permit(promise.OpFork)
		os.Exit(4)
	case "keep-promises":
		promises := "stdio"
		if err := state.Pledge(&promises, nil); err != nil {
			os.Exit(3)
		}
		if err := hook.Permit(promise.OpStdio); err != nil {
			os.Exit(4)
		}
		os.Exit(42)
	case "pledge-nothing":
		if err := state.Pledge(nil, nil); err != nil {
			os.Exit(3)
		}
		if err := hook.Permit(promise.OpFork); err != nil {
			os.Exit(4)
		}
		os.Exit(42)
	default:
		os.Exit(5)
	}
}

func runHelper(t *testing.T, mode string) *exec.ExitError {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=TestHelperProcess")
	cmd.Env = append(os.Environ(), helperModeEnvVar+"="+mode)
	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("run helper %q: %v", mode, err)
	}
	return exitErr
}

func TestProcessGetsKilledOnViolation(t *testing.T) {
	t.Parallel()

	exitErr := runHelper(t, "violate")
	if exitErr == nil {
		t.Fatalf("expected the violating child to die abnormally")
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		t.Fatalf("unexpected wait status type %T", exitErr.Sys())
	}
	if !status.Signaled() {
		t.Fatalf("expected signal termination, got status %d", status.ExitStatus())
	}
	if status.Signal() != syscall.SIGABRT {
		t.Fatalf("expected SIGABRT, got %s", status.Signal())
	}
}

func TestProcessKeepingPromisesExitsNormally(t *testing.T) {
	t.Parallel()

	exitErr := runHelper(t, "keep-promises")
	if exitErr == nil {
		t.Fatalf("expected exit code 42")
	}
	if exitErr.ExitCode() != 42 {
		t.Fatalf("expected exit code 42, got %d", exitErr.ExitCode())
	}
}

func TestPledgeNothingHasNoEffect(t *testing.T) {
	t.Parallel()

	exitErr := runHelper(t, "pledge-nothing")
	if exitErr == nil {
		t.Fatalf("expected exit code 42")
	}
	if exitErr.ExitCode() != 42 {
		t.Fatalf("expected exit code passthrough 42, got %d", exitErr.ExitCode())
	}
}
