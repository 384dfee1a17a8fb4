package usecase

import (
	"context"
	"time"

	"expense-autofill/internal/domain"
)

// Region is the resolved JavaScript path of one frameset region's form,
// always evaluated from the top window (for example "parent.APPY.FORM1").
// The remote frameset is same-origin, so script paths reach every frame.
type Region string

// Section names one of the three form regions for view toggling.
type Section int

const (
	SectionBudget Section = iota
	SectionItems
	SectionPayee
)

// SelectOption is one option of a remote <select> element.
type SelectOption struct {
	Value string
	Text  string
}

// DialogHandler decides a native prompt: return true to accept, false to
// dismiss. The message is recorded by the caller.
type DialogHandler func(message string) (accept bool)

// Window is a secondary browser window opened by the remote system, such
// as the bank-account selection pop-up or the confirmation document.
type Window interface {
	ReadField(ctx context.Context, form, field string) (string, error)
	Evaluate(ctx context.Context, js string, out any) error
	HTML(ctx context.Context) (string, error)
	Exists(ctx context.Context) bool
	Close(ctx context.Context) error
}

// Transport is the browsing session the fill components drive. The
// usecase layer depends on this interface, not on a concrete
// implementation.
//
//go:generate mockgen -destination=mocks/mock_collaborators.go -package=mock_usecase expense-autofill/internal/usecase OCRClient,Prompter,SequenceStore
type Transport interface {
	// Navigate loads url in the active window.
	Navigate(ctx context.Context, url string) error
	// Evaluate runs js in the active window's top frame. out may be nil.
	Evaluate(ctx context.Context, js string, out any) error

	// ResolveRegion finds the frame whose form carries the given field
	// name and returns its script path. Waits bounded; a region that never
	// appears is an error.
	ResolveRegion(ctx context.Context, signatureField string) (Region, error)

	SetField(ctx context.Context, region Region, field, value string) error
	ReadField(ctx context.Context, region Region, field string) (string, error)
	// ClickField fires the field's click handler, which is how the remote
	// pages trigger their recompute and lookup actions.
	ClickField(ctx context.Context, region Region, field string) error
	// InvokeAction calls a named in-page function defined by the region's
	// frame, such as the cascade loaders and the save handler. Invoking
	// the function directly is more reliable on this system than
	// simulating a click on whatever element happens to wrap it.
	InvokeAction(ctx context.Context, region Region, action string) error
	// SetChecked forces a checkbox into the given state, clicking only
	// when the state differs so the field's toggle handler fires at most
	// once.
	SetChecked(ctx context.Context, region Region, field string, checked bool) error
	SelectOption(ctx context.Context, region Region, field, value string) error
	ReadOptions(ctx context.Context, region Region, field string) ([]SelectOption, error)

	// ForceRevalidate re-applies the frameset geometry that makes the
	// section visible. The remote recompute handlers read layout state, so
	// a hidden section computes garbage.
	ForceRevalidate(ctx context.Context, section Section) error

	// AwaitMainWindow waits for a new top-level window and adopts it as
	// the active window. Used after login, which opens the application in
	// a fresh window.
	AwaitMainWindow(ctx context.Context, timeout time.Duration) error
	// AwaitPopup waits for a new secondary window without adopting it.
	AwaitPopup(ctx context.Context, timeout time.Duration) (Window, error)

	// SetDialogHandler installs h for native alert/confirm dialogs. A nil
	// handler restores the default (accept and record nothing).
	SetDialogHandler(h DialogHandler)

	ScreenshotElement(ctx context.Context, selector string) ([]byte, error)
	Screenshot(ctx context.Context) ([]byte, error)
	// PageText returns the visible text of the active window, used to
	// classify login failures.
	PageText(ctx context.Context) (string, error)

	Close() error
}

// OCRClient extracts structured data from images via a vision model.
type OCRClient interface {
	// ExtractReceipts reads one photo, which may contain several receipts.
	ExtractReceipts(ctx context.Context, image []byte, name string) ([]domain.Receipt, error)
	// SolveCaptcha reads the login verification code image.
	SolveCaptcha(ctx context.Context, image []byte) (string, error)
}

// Prompter asks the operator a question with a deadline. When the
// deadline passes the fallback answer is returned, so an unattended run
// never blocks.
type Prompter interface {
	Ask(ctx context.Context, question string, timeout time.Duration, fallback string) string
	Confirm(ctx context.Context, question string, timeout time.Duration, fallback bool) bool
}

// SequenceStore hands out per-day receipt sequence numbers. Sequences
// survive process restarts and reset each day.
type SequenceStore interface {
	Next(ctx context.Context, day string) (int, error)
	Close() error
}
