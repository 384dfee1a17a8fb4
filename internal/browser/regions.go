package browser

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"expense-autofill/internal/usecase"
)

const resolveDeadline = 10 * time.Second

// resolveJS walks the frame tree from the top window and returns the
// script paths of every form carrying the signature field. Cross-origin
// frames throw on access and are skipped; the remote frameset is entirely
// same-origin.
const resolveJS = `((sig) => {
	const found = [];
	const visit = (win, path) => {
		try {
			const forms = win.document.forms;
			for (let i = 0; i < forms.length; i++) {
				if (forms[i].elements[sig]) {
					const ref = forms[i].name
						? '.' + forms[i].name
						: '.document.forms[' + i + ']';
					found.push((path || 'window') + ref);
				}
			}
		} catch (e) {}
		for (let j = 0; j < win.frames.length; j++) {
			try {
				const name = win.frames[j].name || ('frames[' + j + ']');
				visit(win.frames[j], path ? path + '.' + name : name);
			} catch (e) {}
		}
	};
	visit(window, '');
	return found;
})(%q)`

// ResolveRegion locates the form region carrying signatureField. Polls
// within a bounded deadline because the frameset loads its frames
// asynchronously. Resolution is deterministic: the same signature on an
// unchanged page yields the same path.
func (s *Session) ResolveRegion(ctx context.Context, signatureField string) (usecase.Region, error) {
	js := fmt.Sprintf(resolveJS, signatureField)
	deadline := time.After(resolveDeadline)
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()

	for {
		var paths []string
		if err := s.Evaluate(ctx, js, &paths); err != nil {
			return "", fmt.Errorf("resolve region %q: %w", signatureField, err)
		}
		if len(paths) > 0 {
			if len(paths) > 1 {
				s.log.Warn("signature field matches several forms, using first",
					zap.String("signature", signatureField), zap.Strings("paths", paths))
			}
			s.log.Debug("region resolved",
				zap.String("signature", signatureField), zap.String("path", paths[0]))
			return usecase.Region(paths[0]), nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline:
			return "", fmt.Errorf("region %q: %w", signatureField, usecase.ErrRegionMissing)
		case <-tick.C:
		}
	}
}

// Frameset geometry per section view, taken from the remote page's own
// edit buttons. The rows value splits header from detail, the cols value
// picks which detail frame is visible.
var sectionGeometry = map[usecase.Section]struct{ rows, cols string }{
	usecase.SectionBudget: {rows: "*,0", cols: "*,0,0"},
	usecase.SectionItems:  {rows: "160,*", cols: "*,0,0"},
	usecase.SectionPayee:  {rows: "160,*", cols: "0,*,0"},
}

// forceRevalidateJS finds the window owning the DD/QQ framesets and
// applies the geometry. Idempotent: re-applying the same geometry is a
// no-op for the layout and harmless for the page's validation handlers.
const forceRevalidateJS = `((rows, cols) => {
	const find = (win) => {
		try {
			if (win.DD && win.QQ) return win;
		} catch (e) {}
		for (let j = 0; j < win.frames.length; j++) {
			try {
				const r = find(win.frames[j]);
				if (r) return r;
			} catch (e) {}
		}
		return null;
	};
	const w = find(window);
	if (!w) return false;
	w.DD.rows = rows;
	w.QQ.cols = cols;
	return true;
})(%q, %q)`

// ForceRevalidate switches the visible section view. The remote page's
// recompute handlers read layout state, so cycling the views is how the
// page is made to re-render and re-validate each region.
func (s *Session) ForceRevalidate(ctx context.Context, section usecase.Section) error {
	g, ok := sectionGeometry[section]
	if !ok {
		return fmt.Errorf("unknown section %d", section)
	}
	var applied bool
	if err := s.Evaluate(ctx, fmt.Sprintf(forceRevalidateJS, g.rows, g.cols), &applied); err != nil {
		return fmt.Errorf("apply section view: %w", err)
	}
	if !applied {
		return fmt.Errorf("section framesets not found: %w", usecase.ErrRegionMissing)
	}
	return nil
}
