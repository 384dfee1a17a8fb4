package usecase_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"expense-autofill/internal/usecase"
)

// fakeTransport is a stateful in-memory stand-in for the browser session.
// Field writes land in a map keyed by "region.field"; hooks let a test
// script remote side effects such as dialogs and pop-ups.
type fakeTransport struct {
	mu sync.Mutex

	fields  map[string]string
	checked map[string]bool
	options map[string][]usecase.SelectOption

	navigated   []string
	evaluated   []string
	clicked     []string
	invoked     []string
	revalidated []usecase.Section

	regionPaths map[string]string // signature field -> path

	dialog usecase.DialogHandler

	// evalJSON answers the next Evaluate call that wants a result.
	evalJSON string
	// onInvoke runs after an action is recorded, keyed by action name.
	onInvoke map[string]func()
	// popups are handed out by AwaitPopup in order; exhausted waits fail.
	popups []*fakeWindow

	mainWindowErr  error
	mainWindowErrs []error // served in order before mainWindowErr
	pageText       string
	screenshot    []byte
	optionsRetry  map[string][]usecase.SelectOption // served on the second read
	optionReads   map[string]int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		fields:  map[string]string{},
		checked: map[string]bool{},
		options: map[string][]usecase.SelectOption{},
		regionPaths: map[string]string{
			"BUGETNO_1": "MAIN.APPY.FORM1",
			"CONTENT":   "MAIN.APPP.FORM1",
			"PROX_1":    "MAIN.APPA.FORM1",
		},
		onInvoke:     map[string]func(){},
		optionsRetry: map[string][]usecase.SelectOption{},
		optionReads:  map[string]int{},
		screenshot:   []byte("png"),
	}
}

func key(region usecase.Region, field string) string {
	return fmt.Sprintf("%s.%s", region, field)
}

func (t *fakeTransport) Navigate(ctx context.Context, url string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.navigated = append(t.navigated, url)
	return nil
}

func (t *fakeTransport) Evaluate(ctx context.Context, js string, out any) error {
	t.mu.Lock()
	t.evaluated = append(t.evaluated, js)
	data := t.evalJSON
	t.mu.Unlock()
	if out == nil {
		return nil
	}
	if data == "" {
		return fmt.Errorf("no scripted evaluate result")
	}
	return json.Unmarshal([]byte(data), out)
}

func (t *fakeTransport) ResolveRegion(ctx context.Context, sig string) (usecase.Region, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	path, ok := t.regionPaths[sig]
	if !ok {
		return "", usecase.ErrRegionMissing
	}
	return usecase.Region(path), nil
}

func (t *fakeTransport) SetField(ctx context.Context, region usecase.Region, field, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fields[key(region, field)] = value
	return nil
}

func (t *fakeTransport) ReadField(ctx context.Context, region usecase.Region, field string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fields[key(region, field)], nil
}

func (t *fakeTransport) ClickField(ctx context.Context, region usecase.Region, field string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clicked = append(t.clicked, key(region, field))
	return nil
}

func (t *fakeTransport) InvokeAction(ctx context.Context, region usecase.Region, action string) error {
	t.mu.Lock()
	t.invoked = append(t.invoked, action)
	hook := t.onInvoke[action]
	t.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (t *fakeTransport) SetChecked(ctx context.Context, region usecase.Region, field string, checked bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checked[key(region, field)] = checked
	return nil
}

func (t *fakeTransport) SelectOption(ctx context.Context, region usecase.Region, field, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fields[key(region, field)] = value
	return nil
}

func (t *fakeTransport) ReadOptions(ctx context.Context, region usecase.Region, field string) ([]usecase.SelectOption, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key(region, field)
	t.optionReads[k]++
	if retry, ok := t.optionsRetry[k]; ok && t.optionReads[k] > 1 {
		return retry, nil
	}
	return t.options[k], nil
}

func (t *fakeTransport) ForceRevalidate(ctx context.Context, section usecase.Section) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revalidated = append(t.revalidated, section)
	return nil
}

func (t *fakeTransport) AwaitMainWindow(ctx context.Context, timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.mainWindowErrs) > 0 {
		err := t.mainWindowErrs[0]
		t.mainWindowErrs = t.mainWindowErrs[1:]
		return err
	}
	return t.mainWindowErr
}

func (t *fakeTransport) AwaitPopup(ctx context.Context, timeout time.Duration) (usecase.Window, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.popups) == 0 {
		return nil, fmt.Errorf("no new window")
	}
	w := t.popups[0]
	t.popups = t.popups[1:]
	return w, nil
}

func (t *fakeTransport) SetDialogHandler(h usecase.DialogHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dialog = h
}

// fireDialog delivers a remote prompt to the registered handler and
// returns the handler's answer.
func (t *fakeTransport) fireDialog(msg string) bool {
	t.mu.Lock()
	h := t.dialog
	t.mu.Unlock()
	if h == nil {
		return true
	}
	return h(msg)
}

func (t *fakeTransport) ScreenshotElement(ctx context.Context, selector string) ([]byte, error) {
	return t.screenshot, nil
}

func (t *fakeTransport) Screenshot(ctx context.Context) ([]byte, error) {
	return t.screenshot, nil
}

func (t *fakeTransport) PageText(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pageText, nil
}

func (t *fakeTransport) Close() error { return nil }

func (t *fakeTransport) field(region usecase.Region, field string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fields[key(region, field)]
}

func (t *fakeTransport) setField(region usecase.Region, field, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fields[key(region, field)] = value
}

// fakeWindow is a scripted secondary window.
type fakeWindow struct {
	mu       sync.Mutex
	evalJSON string
	html     string
	closed   bool
	closeErr error
}

func (w *fakeWindow) Evaluate(ctx context.Context, js string, out any) error {
	if out == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.evalJSON == "" {
		return fmt.Errorf("no scripted window result")
	}
	return json.Unmarshal([]byte(w.evalJSON), out)
}

func (w *fakeWindow) ReadField(ctx context.Context, form, field string) (string, error) {
	return "", nil
}

func (w *fakeWindow) HTML(ctx context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.html, nil
}

func (w *fakeWindow) Exists(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed
}

func (w *fakeWindow) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closeErr != nil {
		err := w.closeErr
		w.closeErr = nil
		return err
	}
	w.closed = true
	return nil
}
