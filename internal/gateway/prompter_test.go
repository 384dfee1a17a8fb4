package gateway

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testPrompter(input io.Reader) (*TerminalPrompter, *bytes.Buffer) {
	var out bytes.Buffer
	return &TerminalPrompter{
		in:  bufio.NewReader(input),
		out: &out,
		log: zap.NewNop(),
	}, &out
}

func TestAskReturnsTrimmedLine(t *testing.T) {
	p, out := testPrompter(strings.NewReader("  2  \n"))
	answer := p.Ask(context.Background(), "選擇: ", time.Second, "1")
	assert.Equal(t, "2", answer)
	assert.Contains(t, out.String(), "選擇: ")
}

func TestAskFallsBackOnTimeout(t *testing.T) {
	r, _ := io.Pipe() // never delivers a line
	p, out := testPrompter(r)
	answer := p.Ask(context.Background(), "選擇: ", 50*time.Millisecond, "1")
	assert.Equal(t, "1", answer)
	assert.Contains(t, out.String(), "預設值")
}

func TestAskFallsBackOnCancel(t *testing.T) {
	r, _ := io.Pipe()
	p, _ := testPrompter(r)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	answer := p.Ask(ctx, "選擇: ", time.Minute, "1")
	assert.Equal(t, "1", answer)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback bool
		want     bool
	}{
		{"yes", "y\n", false, true},
		{"yes word", "YES\n", false, true},
		{"no", "n\n", true, false},
		{"empty takes fallback", "\n", true, true},
		{"garbage takes fallback", "maybe\n", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, out := testPrompter(strings.NewReader(tt.input))
			got := p.Confirm(context.Background(), "確定？", time.Second, tt.fallback)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "確定？")
		})
	}
}
