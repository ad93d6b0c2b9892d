package notifier

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/V4T54L/milestone-notifier/internal/domain"
)

// StdoutSender prints messages instead of delivering them. Useful for dry runs.
type StdoutSender struct {
	mu  sync.Mutex
	out io.Writer
}

// NewStdoutSender creates a StdoutSender writing to w, or os.Stdout when w is nil.
func NewStdoutSender(w io.Writer) *StdoutSender {
	if w == nil {
		w = os.Stdout
	}
	return &StdoutSender{out: w}
}

// Send prints the destination and body.
func (s *StdoutSender) Send(ctx context.Context, to domain.PhoneDestination, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.out, "--- MESSAGE ---\nTo: %s\nBody: %s\n---------------\n", to, body)
	return err
}
