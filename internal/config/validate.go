package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/machinae/procveil/internal/promise"
	"github.com/machinae/procveil/internal/unveil"
)

// Validate checks a loaded profile before any of it is applied, so a
// malformed profile fails as a whole instead of leaving the process
// half-restricted.
func Validate(p *Profile) error {
	if p == nil {
		return errors.New("profile is required")
	}
	if p.Promises != nil {
		if _, err := promise.Parse(*p.Promises); err != nil {
			return fmt.Errorf("promises: %w", err)
		}
	}
	if p.ExecPromises != nil {
		if _, err := promise.Parse(*p.ExecPromises); err != nil {
			return fmt.Errorf("exec_promises: %w", err)
		}
	}
	for i, rule := range p.Unveil {
		if strings.TrimSpace(rule.Path) == "" {
			return fmt.Errorf("unveil rule %d: path is required", i)
		}
		if _, err := unveil.ParseModes(rule.Modes); err != nil {
			return fmt.Errorf("unveil rule %d: %w", i, err)
		}
	}
	if strings.TrimSpace(p.Command) != "" {
		argv, err := p.SplitCommand()
		if err != nil {
			return err
		}
		if len(argv) == 0 {
			return errors.New("command splits to nothing")
		}
	}
	if _, err := p.Level(); err != nil {
		return err
	}
	return nil
}
