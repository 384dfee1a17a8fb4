package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"expense-autofill/internal/domain"
)

const saveDeadline = 30 * time.Second

// Submitter triggers the remote save and independently verifies the
// outcome against the record list. The save-succeeded prompt alone is not
// proof the data was recorded.
type Submitter struct {
	transport   Transport
	artifactDir string
	log         *zap.Logger
}

func NewSubmitter(transport Transport, artifactDir string, log *zap.Logger) *Submitter {
	return &Submitter{transport: transport, artifactDir: artifactDir, log: log}
}

// saveState classifies the prompt sequence the remote emits during save.
type saveState struct {
	mu       sync.Mutex
	saved    bool
	failed   bool
	messages []string
}

func (s *saveState) handle(msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)

	switch {
	case strings.Contains(msg, "受款人尚未編輯"), strings.Contains(msg, "受款人尚未輸入"):
		// "Proceed without further payee edits."
		return false
	case strings.Contains(msg, "存入成功"), strings.Contains(msg, "列印"):
		s.saved = true
		return true
	case strings.Contains(msg, "金額"):
		// "Amount may not be zero" / "amounts do not match".
		s.failed = true
		return true
	default:
		return true
	}
}

func (s *saveState) snapshot() (saved, failed bool, messages []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved, s.failed, append([]string(nil), s.messages...)
}

// SubmitAndVerify invokes the save handler, classifies the resulting
// prompts and windows, then re-queries the record list for the expected
// record. Interceptors are scoped to this call and always removed.
func (s *Submitter) SubmitAndVerify(ctx context.Context, regions Regions, record domain.TransactionRecord, receiptNo string) (domain.OutcomeReport, error) {
	var report domain.OutcomeReport

	state := &saveState{}
	s.transport.SetDialogHandler(state.handle)
	defer s.transport.SetDialogHandler(nil)

	// The success path opens the generated confirmation document in a new
	// window; capture it instead of letting it print.
	docCh := make(chan string, 1)
	docCtx, cancelDoc := context.WithCancel(ctx)
	defer cancelDoc()
	go s.captureConfirmation(docCtx, docCh)

	if err := s.transport.InvokeAction(ctx, regions.Header, "SUM_ALERT"); err != nil {
		return report, fmt.Errorf("invoke save: %w", err)
	}

	saved, failed, err := s.awaitOutcome(ctx, state)
	_, _, report.Messages = state.snapshot()
	if err != nil {
		return report, err
	}
	if failed {
		return report, fmt.Errorf("%w: %s", ErrSaveRejected, strings.Join(report.Messages, "; "))
	}
	if !saved {
		return report, ErrSaveTimeout
	}
	report.Saved = true

	select {
	case path := <-docCh:
		if path != "" {
			report.Artifacts = append(report.Artifacts, path)
		}
	case <-time.After(5 * time.Second):
		report.AddMessage("確認文件視窗未出現")
	}

	if err := s.verifySaved(ctx, record, receiptNo, &report); err != nil {
		return report, err
	}
	return report, nil
}

func (s *Submitter) awaitOutcome(ctx context.Context, state *saveState) (saved, failed bool, err error) {
	deadline := time.After(saveDeadline)
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return false, false, ctx.Err()
		case <-deadline:
			saved, failed, _ = state.snapshot()
			return saved, failed, nil
		case <-tick.C:
			saved, failed, _ = state.snapshot()
			if saved || failed {
				return saved, failed, nil
			}
		}
	}
}

// captureConfirmation waits for the confirmation document window,
// suppresses its native print action, saves its content and closes it.
func (s *Submitter) captureConfirmation(ctx context.Context, out chan<- string) {
	win, err := s.transport.AwaitPopup(ctx, saveDeadline)
	if err != nil {
		out <- ""
		return
	}
	if err := win.Evaluate(ctx, "window.print = function(){}", nil); err != nil {
		s.log.Warn("print suppression failed", zap.Error(err))
	}
	html, err := win.HTML(ctx)
	if err != nil {
		s.log.Warn("confirmation capture failed", zap.Error(err))
		out <- ""
		_ = win.Close(ctx)
		return
	}
	path := filepath.Join(s.artifactDir, fmt.Sprintf("confirmation_%s.html", uuid.NewString()[:8]))
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		s.log.Warn("confirmation write failed", zap.Error(err))
		path = ""
	} else {
		s.log.Info("confirmation document captured", zap.String("path", path))
	}
	_ = win.Close(ctx)
	out <- path
}

const recordListJS = `(() => {
	const rows = [];
	const main = MAIN && MAIN.document ? MAIN.document : document;
	main.querySelectorAll('table tr').forEach(tr => {
		const cells = [];
		tr.querySelectorAll('td, th').forEach(td => cells.push(td.innerText.trim()));
		if (cells.some(c => c)) rows.push(cells);
	});
	return rows;
})()`

// verifySaved re-opens the record list and looks for the newest row
// carrying the generated receipt number, comparing the listed amount to
// the record total. An unreachable list degrades to a caveat, not a false
// failure; a reachable list that disagrees is a mismatch, which is worse
// than a plain failure because it implies undetected data loss.
func (s *Submitter) verifySaved(ctx context.Context, record domain.TransactionRecord, receiptNo string, report *domain.OutcomeReport) error {
	openList := `FM.rows="15%,*,0,0,0,0,0"; TITLE.document.querySelector('a[name=SBT3]').click();`
	if err := s.transport.Evaluate(ctx, openList, nil); err != nil {
		report.AddMessage("無法開啟請購明細清單，僅以存入提示為準")
		return nil
	}
	if err := settle(ctx, 3*time.Second); err != nil {
		return err
	}

	var rows [][]string
	if err := s.transport.Evaluate(ctx, recordListJS, &rows); err != nil {
		report.AddMessage("請購明細清單讀取失敗，僅以存入提示為準")
		return nil
	}

	want := strconv.FormatInt(record.Total, 10)
	// Newest first: the remote list appends, so scan from the bottom.
	for i := len(rows) - 1; i >= 0; i-- {
		if !containsCell(rows[i], receiptNo) {
			continue
		}
		report.RecordID = receiptNo
		report.Verification = strings.Join(rows[i], " | ")
		if amountInRow(rows[i], want) {
			report.VerifiedAmount = record.Total
			s.log.Info("record verified in list",
				zap.String("receipt_no", receiptNo), zap.Int64("amount", record.Total))
			return s.verifyDetails(ctx, report)
		}
		report.VerificationMismatch = true
		return fmt.Errorf("%w: listed row %q, expected amount %s", ErrVerifyMismatch, report.Verification, want)
	}

	report.VerificationMismatch = true
	return fmt.Errorf("%w: no list row carries %s", ErrVerifyMismatch, receiptNo)
}

// verifyDetails re-reads the item and payee sections once the list row
// checks out. The remote may already have swapped the frameset for the
// list view, so an unreachable section only adds a caveat; a reachable
// section whose key field came back empty means the save shed data.
func (s *Submitter) verifyDetails(ctx context.Context, report *domain.OutcomeReport) error {
	checks := []struct {
		sig, field, label string
	}{
		{itemsSignature, "PRODUCT_1", "品名明細"},
		{payeeSignature, "VENNAME_1", "受款人"},
	}
	for _, c := range checks {
		region, err := s.transport.ResolveRegion(ctx, c.sig)
		if err != nil {
			report.AddMessage(fmt.Sprintf("%s區塊無法讀取，僅以清單金額為準", c.label))
			continue
		}
		value, err := s.transport.ReadField(ctx, region, c.field)
		if err != nil {
			report.AddMessage(fmt.Sprintf("%s欄位讀取失敗，僅以清單金額為準", c.label))
			continue
		}
		if strings.TrimSpace(value) == "" {
			report.VerificationMismatch = true
			return fmt.Errorf("%w: %s empty after save", ErrVerifyMismatch, c.field)
		}
		s.log.Debug("detail field verified", zap.String("field", c.field))
	}
	return nil
}

func containsCell(cells []string, substr string) bool {
	for _, c := range cells {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

func amountInRow(cells []string, want string) bool {
	for _, c := range cells {
		v, err := domain.ParseAmount(c)
		if err != nil {
			continue
		}
		if strconv.FormatInt(v, 10) == want {
			return true
		}
	}
	return false
}
