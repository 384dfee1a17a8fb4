package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"expense-autofill/internal/domain"
)

// Reconciler cycles the section views to force the remote page to
// re-render and re-validate each region, then recomputes and compares the
// three section totals. The remote UI has been observed to silently lose
// a region's data across certain view changes, so the cycle is both a
// consistency test and part of reaching a stable state.
type Reconciler struct {
	transport Transport
	log       *zap.Logger
}

func NewReconciler(transport Transport, log *zap.Logger) *Reconciler {
	return &Reconciler{transport: transport, log: log}
}

// Reconcile returns the verdict over the three totals. Decision rule:
// all equal and positive is consistent; budget and items agreeing alone
// is consistent with a warning, because the remote system's payee-total
// propagation is known to be unreliable; anything else withholds
// submission.
func (r *Reconciler) Reconcile(ctx context.Context, regions Regions) (domain.ReconciliationResult, error) {
	var res domain.ReconciliationResult

	for _, s := range []Section{SectionBudget, SectionItems, SectionPayee, SectionItems, SectionBudget} {
		if err := r.transport.ForceRevalidate(ctx, s); err != nil {
			return res, fmt.Errorf("revalidate section %d: %w", s, err)
		}
		if err := settle(ctx, time.Second); err != nil {
			return res, err
		}
	}

	if err := r.recompute(ctx, regions); err != nil {
		return res, err
	}

	totals, err := r.readTotals(ctx, regions.Header)
	if err != nil {
		return res, err
	}
	res.Totals = totals

	switch {
	case totals.Budget == totals.Items && totals.Items == totals.Payee && totals.Budget > 0:
		res.Verdict = domain.Consistent
	case totals.Budget == totals.Items && totals.Budget > 0:
		res.Verdict = domain.ConsistentWithWarning
		res.Discrepancy = totals.Budget - totals.Payee
		r.log.Warn("payee total disagrees, proceeding on budget/items agreement",
			zap.Int64("budget", totals.Budget), zap.Int64("payee", totals.Payee))
	default:
		res.Verdict = domain.Inconsistent
		res.Discrepancy = totals.Budget - totals.Items
		r.log.Error("section totals inconsistent",
			zap.Int64("budget", totals.Budget),
			zap.Int64("items", totals.Items),
			zap.Int64("payee", totals.Payee))
	}
	return res, nil
}

// recompute invokes the remote's own per-section total actions. The
// payee recompute handler is broken upstream, so its total is refreshed
// by clicking the section's sum field directly and copying the value into
// the header's mirror field.
func (r *Reconciler) recompute(ctx context.Context, regions Regions) error {
	if err := r.transport.InvokeAction(ctx, regions.Header, "CHK_APPP"); err != nil {
		r.log.Warn("item total recompute failed", zap.Error(err))
	}
	if err := settle(ctx, time.Second); err != nil {
		return err
	}

	if err := r.transport.ClickField(ctx, regions.Payee, "SUM_LIST"); err != nil {
		r.log.Warn("payee total recompute failed", zap.Error(err))
	}
	if err := settle(ctx, time.Second); err != nil {
		return err
	}

	payeeSum, err := r.transport.ReadField(ctx, regions.Payee, "SUM_LIST")
	if err != nil {
		return fmt.Errorf("read payee total: %w", err)
	}
	if err := r.transport.SetField(ctx, regions.Header, "SUM_APPA", payeeSum); err != nil {
		return fmt.Errorf("mirror payee total: %w", err)
	}
	return settle(ctx, 500*time.Millisecond)
}

func (r *Reconciler) readTotals(ctx context.Context, header Region) (domain.SectionTotals, error) {
	var totals domain.SectionTotals
	for _, f := range []struct {
		field string
		dest  *int64
	}{
		{"SUM_LIST", &totals.Budget},
		{"SUM_APPP", &totals.Items},
		{"SUM_APPA", &totals.Payee},
	} {
		raw, err := r.transport.ReadField(ctx, header, f.field)
		if err != nil {
			return totals, fmt.Errorf("read %s: %w", f.field, err)
		}
		if raw == "" {
			continue
		}
		v, err := domain.ParseAmount(raw)
		if err != nil {
			return totals, fmt.Errorf("total %s: %w", f.field, err)
		}
		*f.dest = v
	}
	return totals, nil
}
