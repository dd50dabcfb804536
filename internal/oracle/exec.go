package oracle

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jutt313/code-xi/internal/tools"
)

// CommandOracle invokes a model through an external command: the prompt goes
// to stdin, the mode is appended as "--mode <mode>", and combined output is
// the oracle's answer. This keeps the provider fully swappable from config.
type CommandOracle struct {
	Runner tools.CommandRunner
	Argv   []string
	Dir    string
}

func (o *CommandOracle) Invoke(ctx context.Context, prompt, mode string) (string, error) {
	if len(o.Argv) == 0 {
		return "", fmt.Errorf("oracle command not configured")
	}
	argv := append(append([]string{}, o.Argv...), "--mode", mode)
	var buf bytes.Buffer
	code, err := o.Runner.Run(ctx, o.Dir, argv, strings.NewReader(prompt), &buf, &buf)
	if err != nil {
		return "", fmt.Errorf("oracle command: %w", err)
	}
	if code != 0 {
		return "", fmt.Errorf("oracle command exited %d: %s", code, strings.TrimSpace(buf.String()))
	}
	return buf.String(), nil
}
