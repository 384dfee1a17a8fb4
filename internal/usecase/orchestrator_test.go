package usecase_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"expense-autofill/internal/domain"
	"expense-autofill/internal/usecase"
	mock_usecase "expense-autofill/internal/usecase/mocks"
)

// pipelineTransport wires up a fake remote system complete enough for a
// full Process run: login succeeds, the form resolves, the header selects
// populate, the payee resolves in place and the three totals agree.
func pipelineTransport(total string) *fakeTransport {
	tr := newFakeTransport()
	tr.options[key(headerRegion, "BUGETNO_1")] = []usecase.SelectOption{
		{Value: "P001", Text: "校內例行業務"},
	}
	tr.options[key(headerRegion, "BUGCODE_1")] = []usecase.SelectOption{
		{Value: "U1", Text: "業務費"},
	}
	tr.options[key(headerRegion, "SERSUB_1")] = []usecase.SelectOption{
		{Value: "110704-8012", Text: "文具紙張"},
	}
	tr.setField(payeeRegion, "VENNAME_1", "統一文具行")
	tr.setField(payeeRegion, "BANKNO_1", "700")
	tr.setField(payeeRegion, "ACCOUNT_1", "0001234567")
	tr.setField(payeeRegion, "ACCOUNTNAM_1", "統一文具行")
	tr.setField(headerRegion, "SUM_LIST", total)
	tr.setField(headerRegion, "SUM_APPP", total)
	tr.setField(payeeRegion, "SUM_LIST", total)
	return tr
}

func pipelineDeps(tr *fakeTransport, ctrl *gomock.Controller, dir string) (usecase.Deps, *mock_usecase.MockSequenceStore, *mock_usecase.MockPrompter) {
	log := zap.NewNop()
	ocr := mock_usecase.NewMockOCRClient(ctrl)
	ocr.EXPECT().SolveCaptcha(gomock.Any(), gomock.Any()).Return("482913", nil).AnyTimes()
	seqs := mock_usecase.NewMockSequenceStore(ctrl)
	prompter := mock_usecase.NewMockPrompter(ctrl)

	return usecase.Deps{
		Transport:   tr,
		Auth:        usecase.NewAuthenticator(tr, ocr, loginURL, log),
		Navigator:   usecase.NewNavigator(tr, log),
		Header:      usecase.NewHeaderFiller(tr, prompter, "", "110704-8012", log),
		Items:       usecase.NewLineItemsFiller(tr, log),
		Payee:       usecase.NewPayeeFiller(tr, "53742109", "郵局", log),
		Reconciler:  usecase.NewReconciler(tr, log),
		Submitter:   usecase.NewSubmitter(tr, dir, log),
		Sequences:   seqs,
		Prompter:    prompter,
		ArtifactDir: dir,
		Log:         log,
	}, seqs, prompter
}

func TestOrchestratorProcessesRecordEndToEnd(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	dir := t.TempDir()

	tr := pipelineTransport("150")
	tr.onInvoke["SUM_ALERT"] = func() { tr.fireDialog("存入成功，是否列印？") }
	tr.evalJSON = `[["114/03/15","NO114031503","150","已存入"]]`

	deps, seqs, _ := pipelineDeps(tr, ctrl, dir)
	seqs.EXPECT().Next(gomock.Any(), "20250315").Return(3, nil)

	record := domain.TransactionRecord{
		Date:        "2025-03-15",
		Payee:       "統一文具行",
		Total:       150,
		SourceCount: 1,
		Items:       []domain.LineItem{{Name: "文具", Quantity: 1, Amount: 150}},
	}
	report, err := usecase.NewOrchestrator(deps).Process(context.Background(), record,
		usecase.Credentials{Username: "u", Password: "p"},
		usecase.Options{Mode: usecase.ModeDepartment, AutoSave: true, MaxLoginAttempts: 1})
	require.NoError(t, err)

	assert.True(t, report.Saved)
	assert.Equal(t, "NO114031503", report.RecordID)
	assert.Equal(t, int64(150), report.VerifiedAmount)
	assert.False(t, report.VerificationMismatch)

	assert.Equal(t, "NO114031503", tr.field(payeeRegion, "INVOICENO_1"))
	assert.Equal(t, "150", tr.field(headerRegion, "D_AMOUNT_1"))
	assert.Equal(t, "文具", tr.field(itemsRegion, "PRODUCT_1"))

	var screenshots int
	for _, a := range report.Artifacts {
		if strings.HasPrefix(filepath.Base(a), "filled_form_") {
			screenshots++
		}
	}
	assert.Equal(t, 1, screenshots)
}

func TestOrchestratorWithholdsInconsistentRecord(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tr := pipelineTransport("150")
	tr.setField(headerRegion, "SUM_APPP", "999")

	deps, _, _ := pipelineDeps(tr, ctrl, t.TempDir())

	record := domain.TransactionRecord{
		Date:        "2025-03-15",
		Payee:       "統一文具行",
		Total:       150,
		SourceCount: 1,
		InvoiceNo:   "AB12345678", // own number, no sequence reserved
		Items:       []domain.LineItem{{Name: "文具", Quantity: 1, Amount: 150}},
	}
	report, err := usecase.NewOrchestrator(deps).Process(context.Background(), record,
		usecase.Credentials{Username: "u", Password: "p"},
		usecase.Options{Mode: usecase.ModeDepartment, AutoSave: true, MaxLoginAttempts: 1})

	assert.ErrorIs(t, err, usecase.ErrInconsistentTotals)
	assert.False(t, report.Saved)
	assert.NotContains(t, tr.invoked, "SUM_ALERT")
	assert.Equal(t, "AB12345678", tr.field(payeeRegion, "INVOICENO_1"))
	require.NotEmpty(t, report.Messages)
	assert.Contains(t, report.Messages[len(report.Messages)-1], "未存入")
}

func TestOrchestratorRejectsInvalidRecord(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tr := newFakeTransport()
	deps, _, _ := pipelineDeps(tr, ctrl, t.TempDir())

	record := domain.TransactionRecord{Date: "2025-03-15", Payee: "x", Total: 0}
	_, err := usecase.NewOrchestrator(deps).Process(context.Background(), record,
		usecase.Credentials{}, usecase.Options{MaxLoginAttempts: 1})
	require.Error(t, err)
	assert.Empty(t, tr.navigated)
}
