// Package browser implements the usecase.Transport interface on a real
// Chrome session driven over the DevTools protocol. The remote system is
// a same-origin frameset, so every frame is reachable by script path from
// the top window; fields and actions are addressed that way instead of
// through per-frame protocol targets.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"expense-autofill/internal/usecase"
)

// Session owns one browser process and the currently active window. It is
// not safe for concurrent use; the orchestration pipeline is strictly
// sequential by design.
type Session struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu      sync.Mutex
	pageCtx context.Context // active window
	cancels []context.CancelFunc
	known   map[target.ID]bool
	dialog  usecase.DialogHandler

	log *zap.Logger
}

var _ usecase.Transport = (*Session)(nil)

// NewSession launches Chrome and opens the initial blank window.
func NewSession(ctx context.Context, headless bool, log *zap.Logger) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1400, 1000),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)

	pageCtx, pageCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			log.Sugar().Debugf(format, args...)
		}))
	if err := chromedp.Run(pageCtx); err != nil {
		pageCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	s := &Session{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		pageCtx:     pageCtx,
		cancels:     []context.CancelFunc{pageCancel},
		known:       map[target.ID]bool{},
		log:         log,
	}
	s.rememberTargets()
	s.listenDialogs(pageCtx)
	return s, nil
}

// run executes chromedp actions against the active window, honoring the
// caller's deadline.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	pageCtx := s.pageCtx
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(pageCtx, actions...) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Navigate loads url in the active window.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.log.Debug("navigate", zap.String("url", url))
	return s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Evaluate runs js in the active window's top frame. out may be nil.
func (s *Session) Evaluate(ctx context.Context, js string, out any) error {
	return s.run(ctx, chromedp.Evaluate(js, out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
	}))
}

// Screenshot captures the active window full-page.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, fmt.Errorf("full screenshot: %w", err)
	}
	return buf, nil
}

// ScreenshotElement captures a single element by CSS selector.
func (s *Session) ScreenshotElement(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Screenshot(selector, &buf, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("screenshot %q: %w", selector, err)
	}
	return buf, nil
}

// PageText returns the visible text of the active window.
func (s *Session) PageText(ctx context.Context) (string, error) {
	var text string
	err := s.Evaluate(ctx, `document.body ? document.body.innerText : ''`, &text)
	if err != nil {
		return "", fmt.Errorf("read page text: %w", err)
	}
	return text, nil
}

// Close shuts down every window and the browser process.
func (s *Session) Close() error {
	s.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()
	for i := len(cancels) - 1; i >= 0; i-- {
		cancels[i]()
	}
	s.allocCancel()
	return nil
}

// rememberTargets records the current target set so later window waits
// only consider genuinely new windows.
func (s *Session) rememberTargets() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	infos, err := s.targets(ctx)
	if err != nil {
		s.log.Warn("initial target listing failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, info := range infos {
		s.known[info.TargetID] = true
	}
}

func (s *Session) targets(ctx context.Context) ([]*target.Info, error) {
	var infos []*target.Info
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		infos, err = target.GetTargets().Do(ctx)
		return err
	}))
	return infos, err
}
