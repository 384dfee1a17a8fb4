package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"expense-autofill/internal/domain"
)

// Options control one orchestration run.
type Options struct {
	Mode             Mode
	PlanHint         string
	AutoSave         bool
	MaxLoginAttempts int
}

// Deps are the orchestrator's collaborators, injected by the caller.
type Deps struct {
	Transport   Transport
	Auth        *Authenticator
	Navigator   *Navigator
	Header      *HeaderFiller
	Items       *LineItemsFiller
	Payee       *PayeeFiller
	Reconciler  *Reconciler
	Submitter   *Submitter
	Sequences   SequenceStore
	Prompter    Prompter
	ArtifactDir string
	Log         *zap.Logger
}

// Orchestrator runs one record through the whole pipeline: authenticate,
// navigate, populate the three sections in order, reconcile, submit and
// verify. The sections share order-sensitive remote state, so they run
// strictly sequentially.
type Orchestrator struct {
	d Deps
}

func NewOrchestrator(d Deps) *Orchestrator {
	return &Orchestrator{d: d}
}

// Process submits one record and returns the outcome report. Section
// integrity failures are recorded and later sections still run, since
// partial visibility aids diagnosis; reconciliation failure withholds
// submission.
func (o *Orchestrator) Process(ctx context.Context, record domain.TransactionRecord, creds Credentials, opts Options) (domain.OutcomeReport, error) {
	var report domain.OutcomeReport

	if err := record.Validate(); err != nil {
		return report, fmt.Errorf("record rejected: %w", err)
	}

	if err := o.d.Auth.Authenticate(ctx, creds, opts.MaxLoginAttempts); err != nil {
		return report, err
	}

	regions, err := o.d.Navigator.OpenExpenseForm(ctx, opts.Mode, opts.PlanHint)
	if err != nil {
		return report, err
	}

	seq, err := o.sequence(ctx, record)
	if err != nil {
		return report, err
	}

	headerRes, err := o.d.Header.Fill(ctx, regions.Header, record.Total, opts.PlanHint)
	if err != nil {
		if !errors.Is(err, ErrFieldIntegrity) {
			return report, err
		}
		report.AddMessage(fmt.Sprintf("經費區塊欄位檢查失敗: %v", err))
	}
	report.Verification = headerRes.PlanName

	itemsRes, err := o.d.Items.Fill(ctx, regions.Items, record)
	if err != nil {
		if !errors.Is(err, ErrFieldIntegrity) {
			return report, err
		}
		report.AddMessage(fmt.Sprintf("品名區塊欄位檢查失敗: %v", err))
	}
	if itemsRes.Truncated > 0 {
		report.AddMessage(fmt.Sprintf("品項超過上限，%d 項併入差額列", itemsRes.Truncated))
	}

	payeeRes, err := o.d.Payee.Fill(ctx, regions.Payee, record, seq)
	if err != nil {
		if !errors.Is(err, ErrFieldIntegrity) {
			return report, err
		}
		report.AddMessage(fmt.Sprintf("受款人區塊欄位檢查失敗: %v", err))
	}

	recon, err := o.d.Reconciler.Reconcile(ctx, regions)
	if err != nil {
		return report, err
	}
	if !recon.Proceed() {
		report.AddMessage(fmt.Sprintf(
			"三區塊金額不一致（經費 %d / 品名 %d / 受款人 %d），未存入，請人工檢查",
			recon.Totals.Budget, recon.Totals.Items, recon.Totals.Payee))
		return report, fmt.Errorf("%w: budget=%d items=%d payee=%d",
			ErrInconsistentTotals, recon.Totals.Budget, recon.Totals.Items, recon.Totals.Payee)
	}
	if recon.Verdict == domain.ConsistentWithWarning {
		report.AddMessage(fmt.Sprintf("受款人加總不一致（差額 %d），依經費/品名一致放行", recon.Discrepancy))
	}

	o.captureForm(ctx, &report)

	if !opts.AutoSave {
		o.d.Prompter.Ask(ctx,
			"表單已填妥，可切換到視窗檢查或修改。按 Enter 存入，或等待 60 秒自動繼續... ",
			60*time.Second, "")
	}

	outcome, err := o.d.Submitter.SubmitAndVerify(ctx, regions, record, payeeRes.ReceiptNo)
	report.Saved = outcome.Saved
	report.RecordID = outcome.RecordID
	report.VerifiedAmount = outcome.VerifiedAmount
	report.VerificationMismatch = outcome.VerificationMismatch
	if outcome.Verification != "" {
		report.Verification = outcome.Verification
	}
	report.Messages = append(report.Messages, outcome.Messages...)
	report.Artifacts = append(report.Artifacts, outcome.Artifacts...)
	return report, err
}

// sequence reserves the per-day receipt sequence, skipped when the record
// carries a usable document number of its own.
func (o *Orchestrator) sequence(ctx context.Context, record domain.TransactionRecord) (int, error) {
	cleaned := strings.NewReplacer("-", "", " ", "").Replace(record.InvoiceNo)
	if domain.ValidReceiptNo(cleaned) {
		return 1, nil
	}
	day := strings.ReplaceAll(record.Date, "-", "")
	seq, err := o.d.Sequences.Next(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("reserve receipt sequence: %w", err)
	}
	o.d.Log.Info("receipt sequence reserved", zap.String("day", day), zap.Int("seq", seq))
	return seq, nil
}

// captureForm screenshots the filled form for the audit trail.
func (o *Orchestrator) captureForm(ctx context.Context, report *domain.OutcomeReport) {
	img, err := o.d.Transport.Screenshot(ctx)
	if err != nil {
		o.d.Log.Warn("form screenshot failed", zap.Error(err))
		return
	}
	path := filepath.Join(o.d.ArtifactDir, fmt.Sprintf("filled_form_%s.png", uuid.NewString()[:8]))
	if err := os.WriteFile(path, img, 0o644); err != nil {
		o.d.Log.Warn("form screenshot write failed", zap.Error(err))
		return
	}
	report.Artifacts = append(report.Artifacts, path)
}
