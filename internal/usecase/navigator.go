package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Mode selects which remote workflow funds the requisition. Both converge
// on the same form shape but enter through different menu items.
type Mode int

const (
	ModeDepartment Mode = iota
	ModeProject
)

// menuForm is the menu bar frame's form, holding the funding-plan
// selector in project mode.
const menuForm Region = "TITLE.document.forms[0]"

// Content signatures of the three form regions. The remote system reuses
// frame names across unrelated pages, so regions are located by a field
// unique to each, not by name.
const (
	headerSignature = "BUGETNO_1"
	itemsSignature  = "CONTENT"
	payeeSignature  = "PROX_1"
)

// Regions holds the three resolved form regions.
type Regions struct {
	Header Region
	Items  Region
	Payee  Region
}

// Navigator drives the menu system from the authenticated main window to
// the direct-expense form and resolves its three regions.
type Navigator struct {
	transport Transport
	log       *zap.Logger
}

func NewNavigator(transport Transport, log *zap.Logger) *Navigator {
	return &Navigator{transport: transport, log: log}
}

// OpenExpenseForm runs the fixed navigation sequence. planHint is used
// only in project mode to pick the funding plan from the menu selector.
func (n *Navigator) OpenExpenseForm(ctx context.Context, mode Mode, planHint string) (Regions, error) {
	entry := "LIS2"
	if mode == ModeProject {
		entry = "LIS4"
	}
	n.log.Info("opening expense form", zap.String("entry", entry))

	if err := n.transport.Evaluate(ctx, fmt.Sprintf("TITLE.%s()", entry), nil); err != nil {
		return Regions{}, fmt.Errorf("menu entry %s: %w", entry, err)
	}
	if err := settle(ctx, 2*time.Second); err != nil {
		return Regions{}, err
	}

	if mode == ModeProject {
		if err := n.selectPlan(ctx, planHint); err != nil {
			return Regions{}, err
		}
	}

	// "New request": restore the menu frameset geometry, then the menu
	// bar's trigger link.
	newRequest := `FM.rows="15%,*,0,0,0,0,0"; TITLE.document.querySelector('a[name=aBT2]').click();`
	if err := n.transport.Evaluate(ctx, newRequest, nil); err != nil {
		return Regions{}, fmt.Errorf("new request trigger: %w", err)
	}
	if err := settle(ctx, 3*time.Second); err != nil {
		return Regions{}, err
	}

	// Category page loads in MAIN: tick direct expense, submit.
	categoryForm := Region("MAIN.document.forms[0]")
	if err := n.transport.ClickField(ctx, categoryForm, "CHK3"); err != nil {
		return Regions{}, fmt.Errorf("select expense category: %w", err)
	}
	if err := settle(ctx, time.Second); err != nil {
		return Regions{}, err
	}
	if err := n.transport.ClickField(ctx, categoryForm, "SSS"); err != nil {
		return Regions{}, fmt.Errorf("submit category page: %w", err)
	}
	if err := settle(ctx, 3*time.Second); err != nil {
		return Regions{}, err
	}

	return n.resolveRegions(ctx)
}

// selectPlan resolves the funding-plan selector in the menu bar. The
// option list loads asynchronously; one bounded re-read covers the race.
func (n *Navigator) selectPlan(ctx context.Context, hint string) error {
	opts, err := n.transport.ReadOptions(ctx, menuForm, "BUGETNO")
	if err != nil || len(opts) == 0 {
		if err := settle(ctx, 3*time.Second); err != nil {
			return err
		}
		opts, err = n.transport.ReadOptions(ctx, menuForm, "BUGETNO")
		if err != nil {
			return fmt.Errorf("read funding plans: %w", err)
		}
	}
	if len(opts) == 0 {
		return fmt.Errorf("funding plan selector empty: %w", ErrRegionMissing)
	}

	chosen := opts[0]
	if hint != "" {
		for _, o := range opts {
			if strings.Contains(o.Text, hint) || strings.Contains(o.Value, hint) {
				chosen = o
				break
			}
		}
	}
	n.log.Info("funding plan selected", zap.String("plan", chosen.Text))
	if err := n.transport.SelectOption(ctx, menuForm, "BUGETNO", chosen.Value); err != nil {
		return fmt.Errorf("select funding plan: %w", err)
	}
	return settle(ctx, time.Second)
}

func (n *Navigator) resolveRegions(ctx context.Context) (Regions, error) {
	var regions Regions
	for _, r := range []struct {
		sig  string
		dest *Region
	}{
		{headerSignature, &regions.Header},
		{itemsSignature, &regions.Items},
		{payeeSignature, &regions.Payee},
	} {
		region, err := n.transport.ResolveRegion(ctx, r.sig)
		if err != nil {
			return Regions{}, fmt.Errorf("region with field %s: %w", r.sig, err)
		}
		*r.dest = region
	}
	n.log.Info("form regions resolved",
		zap.String("header", string(regions.Header)),
		zap.String("items", string(regions.Items)),
		zap.String("payee", string(regions.Payee)))
	return regions, nil
}
