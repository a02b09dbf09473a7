//go:build !unix

package enforce

import (
	"os"

	"github.com/machinae/procveil/internal/logging"
)

// abortProcess ends the process at the point of violation. Platforms
// without SIGABRT semantics still terminate immediately with the
// conventional abort status.
func abortProcess(rep Report) {
	logging.Logger().Error("promise violation",
		"op", rep.Op,
		"path", rep.Path,
		"active", rep.Active,
	)
	rep.write()
	os.Exit(134)
}
