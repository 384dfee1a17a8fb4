package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"expense-autofill/internal/domain"
)

// HeaderResult reports what the header section ended up holding.
type HeaderResult struct {
	PlanName string
	PlanCode string
	Checks   []domain.FieldCheck
}

// HeaderFiller populates the budget header: funding plan, funding use,
// accounting subject and amount. The section drives three cascading
// selects wired to in-page loaders.
type HeaderFiller struct {
	transport  Transport
	prompter   Prompter
	useKeyword string // preferred funding-use entry, first non-empty otherwise
	subject    string // accounting subject code
	log        *zap.Logger
}

func NewHeaderFiller(transport Transport, prompter Prompter, useKeyword, subject string, log *zap.Logger) *HeaderFiller {
	return &HeaderFiller{transport: transport, prompter: prompter, useKeyword: useKeyword, subject: subject, log: log}
}

// Fill writes the header and re-reads its three required fields. A header
// with any of them empty is silently dropped by the remote save logic, so
// an empty re-read is reported as ErrFieldIntegrity; the caller decides
// whether to continue.
func (h *HeaderFiller) Fill(ctx context.Context, region Region, total int64, planHint string) (HeaderResult, error) {
	var res HeaderResult

	plan, err := h.choosePlan(ctx, region, planHint)
	if err != nil {
		return res, err
	}
	res.PlanName = plan.Text
	res.PlanCode = plan.Value
	if err := h.transport.SelectOption(ctx, region, "BUGETNO_1", plan.Value); err != nil {
		return res, fmt.Errorf("select plan: %w", err)
	}
	// onchange runs BN_1 which loads the funding-use list.
	if err := settle(ctx, time.Second); err != nil {
		return res, err
	}

	if err := h.selectUse(ctx, region); err != nil {
		return res, err
	}

	// Balance lookup round-trips through a hidden frame. Best effort: a
	// failed lookup costs the balance display, not the record.
	if err := h.transport.InvokeAction(ctx, region, "BC_1"); err != nil {
		h.log.Warn("balance lookup failed", zap.Error(err))
	} else if err := settle(ctx, 2*time.Second); err != nil {
		return res, err
	}

	if err := h.selectSubject(ctx, region); err != nil {
		return res, err
	}

	if err := h.transport.SetField(ctx, region, "D_AMOUNT_1", strconv.FormatInt(total, 10)); err != nil {
		return res, fmt.Errorf("write amount: %w", err)
	}

	res.Checks, err = h.verify(ctx, region)
	return res, err
}

func (h *HeaderFiller) choosePlan(ctx context.Context, region Region, hint string) (SelectOption, error) {
	opts, err := h.transport.ReadOptions(ctx, region, "BUGETNO_1")
	if err != nil || len(opts) == 0 {
		if err := settle(ctx, 3*time.Second); err != nil {
			return SelectOption{}, err
		}
		opts, err = h.transport.ReadOptions(ctx, region, "BUGETNO_1")
		if err != nil {
			return SelectOption{}, fmt.Errorf("read plan options: %w", err)
		}
	}
	if len(opts) == 0 {
		return SelectOption{}, fmt.Errorf("plan selector never populated: %w", ErrFieldIntegrity)
	}

	if hint != "" {
		for _, o := range opts {
			if strings.Contains(o.Text, hint) || strings.Contains(o.Value, hint) {
				return o, nil
			}
		}
		h.log.Warn("no plan option matched hint", zap.String("hint", hint))
	}
	if len(opts) == 1 {
		return opts[0], nil
	}

	var b strings.Builder
	b.WriteString("請選擇計畫：\n")
	for i, o := range opts {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, o.Text)
	}
	b.WriteString("> ")
	answer := h.prompter.Ask(ctx, b.String(), 10*time.Second, "1")
	idx, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil || idx < 1 || idx > len(opts) {
		idx = 1
	}
	return opts[idx-1], nil
}

func (h *HeaderFiller) selectUse(ctx context.Context, region Region) error {
	opts, err := h.transport.ReadOptions(ctx, region, "BUGCODE_1")
	if err != nil {
		return fmt.Errorf("read funding-use options: %w", err)
	}
	var chosen SelectOption
	for _, o := range opts {
		if o.Value == "" {
			continue
		}
		if chosen.Value == "" {
			chosen = o
		}
		if h.useKeyword != "" && strings.Contains(o.Text, h.useKeyword) {
			chosen = o
			break
		}
	}
	if chosen.Value == "" {
		h.log.Warn("funding-use list empty, leaving default")
		return nil
	}
	if err := h.transport.SelectOption(ctx, region, "BUGCODE_1", chosen.Value); err != nil {
		return fmt.Errorf("select funding use: %w", err)
	}
	return settle(ctx, 500*time.Millisecond)
}

func (h *HeaderFiller) selectSubject(ctx context.Context, region Region) error {
	// SS_1 populates the subject list.
	if err := h.transport.InvokeAction(ctx, region, "SS_1"); err != nil {
		return fmt.Errorf("load subject list: %w", err)
	}
	if err := settle(ctx, 500*time.Millisecond); err != nil {
		return err
	}

	opts, err := h.transport.ReadOptions(ctx, region, "SERSUB_1")
	if err != nil {
		return fmt.Errorf("read subject options: %w", err)
	}
	for _, o := range opts {
		if o.Value == h.subject {
			if err := h.transport.SelectOption(ctx, region, "SERSUB_1", o.Value); err != nil {
				return fmt.Errorf("select subject: %w", err)
			}
			// The page mirrors the select into the code field only on a
			// real click, so mirror it explicitly.
			return h.transport.SetField(ctx, region, "SUBJECTNO_1", o.Value)
		}
	}
	h.log.Warn("subject code not in list, writing code directly",
		zap.String("subject", h.subject), zap.Int("options", len(opts)))
	return h.transport.SetField(ctx, region, "SUBJECTNO_1", h.subject)
}

func (h *HeaderFiller) verify(ctx context.Context, region Region) ([]domain.FieldCheck, error) {
	var checks []domain.FieldCheck
	ok := true
	for _, field := range []string{"BUGETNO_1", "BUGCODE_1", "D_AMOUNT_1"} {
		v, err := h.transport.ReadField(ctx, region, field)
		if err != nil {
			return checks, fmt.Errorf("re-read %s: %w", field, err)
		}
		c := domain.FieldCheck{Field: field, Value: v, OK: v != ""}
		ok = ok && c.OK
		checks = append(checks, c)
	}
	if !ok {
		return checks, fmt.Errorf("header: %w", ErrFieldIntegrity)
	}
	return checks, nil
}
