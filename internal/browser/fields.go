package browser

import (
	"context"
	"fmt"
	"strings"

	"expense-autofill/internal/usecase"
)

// fieldResult carries a per-field evaluation outcome back from the page.
type fieldResult struct {
	Found bool   `json:"found"`
	Value string `json:"value"`
}

// SetField writes value into region.field and fires the change event so
// the page's own handlers run, mirroring what a manual edit would do.
func (s *Session) SetField(ctx context.Context, region usecase.Region, field, value string) error {
	js := fmt.Sprintf(`(() => {
		const el = %s.elements[%q];
		if (!el) return {found: false, value: ''};
		el.value = %q;
		el.dispatchEvent(new Event('change'));
		return {found: true, value: String(el.value)};
	})()`, region, field, value)

	var res fieldResult
	if err := s.Evaluate(ctx, js, &res); err != nil {
		return fmt.Errorf("set %s.%s: %w", region, field, err)
	}
	if !res.Found {
		return fmt.Errorf("set %s.%s: field not present", region, field)
	}
	return nil
}

// ReadField returns the current value of region.field.
func (s *Session) ReadField(ctx context.Context, region usecase.Region, field string) (string, error) {
	js := fmt.Sprintf(`(() => {
		const el = %s.elements[%q];
		if (!el) return {found: false, value: ''};
		return {found: true, value: String(el.value)};
	})()`, region, field)

	var res fieldResult
	if err := s.Evaluate(ctx, js, &res); err != nil {
		return "", fmt.Errorf("read %s.%s: %w", region, field, err)
	}
	if !res.Found {
		return "", fmt.Errorf("read %s.%s: field not present", region, field)
	}
	return res.Value, nil
}

// ClickField fires region.field's click handler.
func (s *Session) ClickField(ctx context.Context, region usecase.Region, field string) error {
	js := fmt.Sprintf(`(() => {
		const el = %s.elements[%q];
		if (!el) return false;
		el.click();
		return true;
	})()`, region, field)

	var ok bool
	if err := s.Evaluate(ctx, js, &ok); err != nil {
		return fmt.Errorf("click %s.%s: %w", region, field, err)
	}
	if !ok {
		return fmt.Errorf("click %s.%s: field not present", region, field)
	}
	return nil
}

// SetChecked forces a checkbox state, clicking only when it differs so
// the toggle handler fires at most once.
func (s *Session) SetChecked(ctx context.Context, region usecase.Region, field string, checked bool) error {
	js := fmt.Sprintf(`(() => {
		const el = %s.elements[%q];
		if (!el) return false;
		if (el.checked !== %t) el.click();
		return true;
	})()`, region, field, checked)

	var ok bool
	if err := s.Evaluate(ctx, js, &ok); err != nil {
		return fmt.Errorf("check %s.%s: %w", region, field, err)
	}
	if !ok {
		return fmt.Errorf("check %s.%s: field not present", region, field)
	}
	return nil
}

// SelectOption picks a <select> option by value, with a text fallback,
// and fires the change event that drives the page's cascade loaders.
func (s *Session) SelectOption(ctx context.Context, region usecase.Region, field, value string) error {
	js := fmt.Sprintf(`(() => {
		const el = %s.elements[%q];
		if (!el) return false;
		el.value = %q;
		if (el.selectedIndex < 0 || el.value !== %q) {
			for (let i = 0; i < el.options.length; i++) {
				if (el.options[i].text === %q) { el.selectedIndex = i; break; }
			}
		}
		el.dispatchEvent(new Event('change'));
		return true;
	})()`, region, field, value, value, value)

	var ok bool
	if err := s.Evaluate(ctx, js, &ok); err != nil {
		return fmt.Errorf("select %s.%s: %w", region, field, err)
	}
	if !ok {
		return fmt.Errorf("select %s.%s: field not present", region, field)
	}
	return nil
}

// ReadOptions lists a <select>'s options.
func (s *Session) ReadOptions(ctx context.Context, region usecase.Region, field string) ([]usecase.SelectOption, error) {
	js := fmt.Sprintf(`(() => {
		const el = %s.elements[%q];
		if (!el || !el.options) return [];
		const out = [];
		for (let i = 0; i < el.options.length; i++) {
			out.push({value: el.options[i].value, text: el.options[i].text.trim()});
		}
		return out;
	})()`, region, field)

	var opts []struct {
		Value string `json:"value"`
		Text  string `json:"text"`
	}
	if err := s.Evaluate(ctx, js, &opts); err != nil {
		return nil, fmt.Errorf("options %s.%s: %w", region, field, err)
	}
	out := make([]usecase.SelectOption, 0, len(opts))
	for _, o := range opts {
		out = append(out, usecase.SelectOption{Value: o.Value, Text: o.Text})
	}
	return out, nil
}

// InvokeAction calls a named function defined by the region's frame.
func (s *Session) InvokeAction(ctx context.Context, region usecase.Region, action string) error {
	js := fmt.Sprintf(`(() => {
		const w = %s;
		if (typeof w[%q] !== 'function') return false;
		w[%q]();
		return true;
	})()`, frameWindow(region), action, action)

	var ok bool
	if err := s.Evaluate(ctx, js, &ok); err != nil {
		return fmt.Errorf("invoke %s in %s: %w", action, region, err)
	}
	if !ok {
		return fmt.Errorf("invoke %s in %s: no such action", action, region)
	}
	return nil
}

// frameWindow strips the form reference off a region path, leaving the
// script path of the frame's window.
func frameWindow(region usecase.Region) string {
	path := string(region)
	if i := strings.Index(path, ".document."); i >= 0 {
		path = path[:i]
	} else if i := strings.LastIndex(path, "."); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.HasPrefix(path, "document") {
		return "window"
	}
	return path
}
