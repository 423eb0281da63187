package executor

// Per-operation attempt logs. Every invocation appends its argv and full
// captured output to logs/<operation>.log so failures can be diagnosed
// without re-running the batch.

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func (e *Executor) appendOpLog(opName string, argv []string, res CommandResult, timedOut bool) {
	if e.logDir == "" {
		return
	}
	if err := os.MkdirAll(e.logDir, 0o755); err != nil {
		return
	}

	path := filepath.Join(e.logDir, sanitizeName(opName)+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s ---\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "cmd: %s\n", strings.Join(argv, " "))
	switch {
	case timedOut:
		b.WriteString("result: timeout\n")
	case res.Err != nil:
		fmt.Fprintf(&b, "result: %v\n", res.Err)
	default:
		b.WriteString("result: ok\n")
	}
	if out := strings.TrimSpace(res.Stdout); out != "" {
		fmt.Fprintf(&b, "stdout:\n%s\n", out)
	}
	if errOut := strings.TrimSpace(res.Stderr); errOut != "" {
		fmt.Fprintf(&b, "stderr:\n%s\n", errOut)
	}
	b.WriteString("\n")
	_, _ = f.WriteString(b.String())
}

// sanitizeName keeps operation names filesystem-safe.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
