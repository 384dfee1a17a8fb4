package gateway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TerminalPrompter asks the operator questions on the terminal with a
// deadline, so an unattended run never blocks on input.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
	log *zap.Logger
}

func NewTerminalPrompter(log *zap.Logger) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(os.Stdin), out: os.Stdout, log: log}
}

// Ask prints the question and waits for one line. When the timeout or the
// context expires first, fallback is returned and the pending read is
// abandoned.
func (p *TerminalPrompter) Ask(ctx context.Context, question string, timeout time.Duration, fallback string) string {
	fmt.Fprint(p.out, question)

	lines := make(chan string, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		if err != nil {
			lines <- fallback
			return
		}
		lines <- strings.TrimSpace(line)
	}()

	select {
	case line := <-lines:
		return line
	case <-time.After(timeout):
		fmt.Fprintf(p.out, "\n(超過 %s 未輸入，自動使用預設值)\n", timeout)
		return fallback
	case <-ctx.Done():
		return fallback
	}
}

// Confirm asks a yes/no question. Empty input takes the fallback.
func (p *TerminalPrompter) Confirm(ctx context.Context, question string, timeout time.Duration, fallback bool) bool {
	hint := "y/N"
	if fallback {
		hint = "Y/n"
	}
	answer := p.Ask(ctx, fmt.Sprintf("%s [%s] ", question, hint), timeout, "")
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return fallback
	}
}
