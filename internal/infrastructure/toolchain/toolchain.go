package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/bnema/docstruct/internal/domain"
)

var (
	ErrEmptyPath   = errors.New("path is empty")
	ErrInvalidPath = errors.New("path contains null byte")
)

const maxOutput = 4096

// Resolve looks every tool up on PATH and returns their absolute paths keyed
// by the same names. All missing tools are reported in one error.
func Resolve(tools map[string]string) (map[string]string, error) {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)

	resolved := make(map[string]string, len(tools))
	var errs []error
	for _, name := range names {
		bin := tools[name]
		if bin == "" {
			errs = append(errs, fmt.Errorf("%s: no binary configured", name))
			continue
		}
		p, err := exec.LookPath(bin)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		resolved[name] = p
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("missing external tools: %w", errors.Join(errs...))
	}
	return resolved, nil
}

// Run executes bin with args and returns its stdout. A non-zero exit is
// reported as a *domain.ToolExecutionError carrying stderr.
func Run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	if err := ValidatePath(bin); err != nil {
		return nil, fmt.Errorf("tool %q: %w", bin, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), &domain.ToolExecutionError{
				Tool:     bin,
				Args:     args,
				ExitCode: exitErr.ExitCode(),
				Output:   truncate(strings.TrimSpace(stderr.String())),
				Err:      err,
			}
		}
		return nil, fmt.Errorf("run %s: %w", bin, err)
	}
	return stdout.Bytes(), nil
}

// ValidatePath rejects paths that cannot be passed to a subprocess.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if strings.ContainsRune(path, 0) {
		return ErrInvalidPath
	}
	return nil
}

func truncate(s string) string {
	if len(s) <= maxOutput {
		return s
	}
	return "..." + s[len(s)-maxOutput:]
}
