package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"expense-autofill/internal/usecase"
)

// SetDialogHandler installs h for native alert/confirm dialogs on the
// active window. A nil handler restores the default, which accepts
// everything.
func (s *Session) SetDialogHandler(h usecase.DialogHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialog = h
}

// listenDialogs wires the dialog interceptor into a window's event
// stream. Dialogs block the page until answered, so the answer is issued
// from a fresh goroutine rather than the event loop.
func (s *Session) listenDialogs(pageCtx context.Context) {
	chromedp.ListenTarget(pageCtx, func(ev any) {
		e, ok := ev.(*page.EventJavascriptDialogOpening)
		if !ok {
			return
		}
		s.mu.Lock()
		h := s.dialog
		s.mu.Unlock()

		accept := true
		if h != nil {
			accept = h(e.Message)
		}
		s.log.Info("dialog answered",
			zap.String("type", string(e.Type)),
			zap.String("message", e.Message),
			zap.Bool("accept", accept))
		go func() {
			if err := chromedp.Run(pageCtx, page.HandleJavaScriptDialog(accept)); err != nil {
				s.log.Warn("dialog answer failed", zap.Error(err))
			}
		}()
	})
}

// AwaitMainWindow waits for a new top-level window and adopts it as the
// active window. The previous window stays open but is no longer driven.
func (s *Session) AwaitMainWindow(ctx context.Context, timeout time.Duration) error {
	id, err := s.awaitTarget(ctx, timeout)
	if err != nil {
		return err
	}

	s.mu.Lock()
	pageCtx, cancel := chromedp.NewContext(s.pageCtx, chromedp.WithTargetID(id))
	s.cancels = append(s.cancels, cancel)
	s.known[id] = true
	s.pageCtx = pageCtx
	s.mu.Unlock()

	if err := s.run(ctx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("adopt new window: %w", err)
	}
	s.listenDialogs(pageCtx)
	s.log.Info("new main window adopted", zap.String("target", string(id)))
	return nil
}

// AwaitPopup waits for a new secondary window without adopting it.
func (s *Session) AwaitPopup(ctx context.Context, timeout time.Duration) (usecase.Window, error) {
	id, err := s.awaitTarget(ctx, timeout)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	winCtx, cancel := chromedp.NewContext(s.pageCtx, chromedp.WithTargetID(id))
	s.cancels = append(s.cancels, cancel)
	s.known[id] = true
	s.mu.Unlock()

	if err := chromedp.Run(winCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("attach pop-up: %w", err)
	}
	s.log.Info("pop-up window attached", zap.String("target", string(id)))
	return &popupWindow{ctx: winCtx, cancel: cancel, log: s.log}, nil
}

// awaitTarget polls the browser's target list for a page target not seen
// before. Polling instead of a one-shot event subscription avoids the
// race where the window opens between trigger and wait.
func (s *Session) awaitTarget(ctx context.Context, timeout time.Duration) (target.ID, error) {
	deadline := time.After(timeout)
	tick := time.NewTicker(300 * time.Millisecond)
	defer tick.Stop()

	for {
		infos, err := s.targets(ctx)
		if err != nil {
			return "", fmt.Errorf("list targets: %w", err)
		}
		s.mu.Lock()
		var found target.ID
		for _, info := range infos {
			if info.Type == "page" && !s.known[info.TargetID] {
				found = info.TargetID
				break
			}
		}
		s.mu.Unlock()
		if found != "" {
			return found, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline:
			return "", fmt.Errorf("no new window within %s", timeout)
		case <-tick.C:
		}
	}
}

// popupWindow drives a secondary window for its short lifetime.
type popupWindow struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
}

var _ usecase.Window = (*popupWindow)(nil)

func (w *popupWindow) Evaluate(ctx context.Context, js string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(w.ctx, chromedp.Evaluate(js, out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
	}))
}

func (w *popupWindow) ReadField(ctx context.Context, form, field string) (string, error) {
	js := fmt.Sprintf(`(() => {
		const f = document.forms[%q] || document.forms[0];
		if (!f || !f.elements[%q]) return '';
		return String(f.elements[%q].value);
	})()`, form, field, field)
	var value string
	if err := w.Evaluate(ctx, js, &value); err != nil {
		return "", fmt.Errorf("pop-up read %s.%s: %w", form, field, err)
	}
	return value, nil
}

func (w *popupWindow) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var html string
	if err := chromedp.Run(w.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("pop-up html: %w", err)
	}
	return html, nil
}

// Exists probes the window with a trivial evaluation; a closed target
// fails the round trip.
func (w *popupWindow) Exists(ctx context.Context) bool {
	probe, cancel := context.WithTimeout(w.ctx, 2*time.Second)
	defer cancel()
	var one int
	return chromedp.Run(probe, chromedp.Evaluate("1", &one)) == nil
}

func (w *popupWindow) Close(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := chromedp.Run(w.ctx, page.Close())
	w.cancel()
	if err != nil {
		return fmt.Errorf("close pop-up: %w", err)
	}
	return nil
}
