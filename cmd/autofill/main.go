// Command autofill scans receipt images, recognizes them with a vision
// model, merges them into one expense record and submits that record to
// the reimbursement system in a single automated browser session.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"expense-autofill/internal/browser"
	"expense-autofill/internal/config"
	"expense-autofill/internal/domain"
	"expense-autofill/internal/gateway"
	"expense-autofill/internal/usecase"
)

// Set at build time with -ldflags.
var version = "dev"

var (
	cfgFile  string
	planHint string
	useProj  bool
	autoSave bool
	headless bool
	ocrOnly  bool
	testMode bool
	verbose  bool
)

var supportedImageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
}

func main() {
	root := &cobra.Command{
		Use:   "autofill",
		Short: "OCR receipt images and submit one expense record to the reimbursement system",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(cmd.Context())
		},
	}
	root.Flags().StringVar(&cfgFile, "config", "autofill.yaml", "configuration file")
	root.Flags().StringVar(&planHint, "plan", "", "funding plan keyword, skips the interactive choice")
	root.Flags().BoolVar(&useProj, "project", false, "use the project-funded workflow instead of the department one")
	root.Flags().BoolVar(&autoSave, "auto-save", false, "save without the manual review pause")
	root.Flags().BoolVar(&headless, "headless", false, "run the browser without a visible window")
	root.Flags().BoolVar(&ocrOnly, "ocr-only", false, "recognize receipts and print the merged record, no submission")
	root.Flags().BoolVar(&testMode, "test", false, "submit a fixed test record, no OCR")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("autofill %s (%s)\n", version, runtime.Version())
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	// Even the fixed test record logs in, and login needs the captcha
	// solver, so the OCR key is required in every mode.
	if err := cfg.Validate(!ocrOnly); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	ocr := gateway.NewVisionClient(cfg.OCRAPIKey, log)
	prompter := gateway.NewTerminalPrompter(log)

	record, err := buildRecord(ctx, cfg, ocr, log)
	if err != nil {
		return err
	}

	if ocrOnly {
		return printJSON(os.Stdout, record)
	}

	if !confirmRecord(ctx, prompter, record) {
		log.Info("operator declined, nothing submitted")
		return nil
	}

	seqs, err := gateway.NewSQLiteSequenceStore(cfg.SequenceDB)
	if err != nil {
		return err
	}
	defer seqs.Close()

	session, err := browser.NewSession(ctx, headless, log)
	if err != nil {
		return err
	}
	defer session.Close()

	orch := usecase.NewOrchestrator(usecase.Deps{
		Transport:   session,
		Auth:        usecase.NewAuthenticator(session, ocr, cfg.SystemURL, log),
		Navigator:   usecase.NewNavigator(session, log),
		Header:      usecase.NewHeaderFiller(session, prompter, cfg.UseKeyword, cfg.SubjectCode, log),
		Items:       usecase.NewLineItemsFiller(session, log),
		Payee:       usecase.NewPayeeFiller(session, cfg.PayeeCode, cfg.BankKeyword, log),
		Reconciler:  usecase.NewReconciler(session, log),
		Submitter:   usecase.NewSubmitter(session, cfg.OutputDir, log),
		Sequences:   seqs,
		Prompter:    prompter,
		ArtifactDir: cfg.OutputDir,
		Log:         log,
	})

	mode := usecase.ModeDepartment
	if useProj {
		mode = usecase.ModeProject
	}
	report, runErr := orch.Process(ctx, record,
		usecase.Credentials{Username: cfg.Username, Password: cfg.Password},
		usecase.Options{
			Mode:             mode,
			PlanHint:         planHint,
			AutoSave:         autoSave,
			MaxLoginAttempts: cfg.MaxLoginAttempts,
		})

	if err := printJSON(os.Stdout, report); err != nil {
		log.Warn("report print failed", zap.Error(err))
	}
	if runErr != nil {
		log.Error("run failed", zap.Error(runErr))
		return runErr
	}
	log.Info("run finished",
		zap.Bool("saved", report.Saved),
		zap.Int64("verified_amount", report.VerifiedAmount))
	return nil
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	return cfg.Build()
}

// buildRecord produces the one record this run submits: a fixed record in
// test mode, otherwise the merge of every recognized receipt image.
func buildRecord(ctx context.Context, cfg config.Config, ocr usecase.OCRClient, log *zap.Logger) (domain.TransactionRecord, error) {
	if testMode {
		return domain.TransactionRecord{
			Date:        time.Now().Format("2006-01-02"),
			Payee:       "測試商店",
			Total:       120,
			SourceCount: 1,
			Items: []domain.LineItem{
				{Name: "測試品項A", Quantity: 1, Amount: 80},
				{Name: "測試品項B", Quantity: 1, Amount: 40},
			},
		}, nil
	}

	images, err := receiptImages(cfg.ReceiptsDir)
	if err != nil {
		return domain.TransactionRecord{}, err
	}
	if len(images) == 0 {
		return domain.TransactionRecord{}, fmt.Errorf("no receipt images in %s", cfg.ReceiptsDir)
	}

	var receipts []domain.Receipt
	for _, path := range images {
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.TransactionRecord{}, fmt.Errorf("read %s: %w", path, err)
		}
		found, err := ocr.ExtractReceipts(ctx, data, filepath.Base(path))
		if err != nil {
			log.Error("recognition failed, image skipped",
				zap.String("image", path), zap.Error(err))
			continue
		}
		receipts = append(receipts, found...)
	}
	if len(receipts) == 0 {
		return domain.TransactionRecord{}, fmt.Errorf("no receipts recognized from %d images", len(images))
	}

	record := domain.MergeReceipts(receipts)
	if err := saveMergedOCR(cfg.OutputDir, record, log); err != nil {
		log.Warn("merged OCR artifact not written", zap.Error(err))
	}
	return record, nil
}

func receiptImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan receipts dir: %w", err)
	}
	var images []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if supportedImageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			images = append(images, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(images)
	return images, nil
}

// confirmRecord shows the merged record and asks once for go-ahead, with
// a timed default of yes so unattended runs proceed.
func confirmRecord(ctx context.Context, prompter usecase.Prompter, record domain.TransactionRecord) bool {
	var b strings.Builder
	fmt.Fprintf(&b, "\n共 %d 張收據，合併為一張請購單：\n", record.SourceCount)
	fmt.Fprintf(&b, "  受款人: %s\n  日期:   %s\n  總金額: NT$%d\n", record.Payee, record.Date, record.Total)
	for _, it := range record.Items {
		fmt.Fprintf(&b, "  - %s x%d = NT$%d\n", it.Name, it.Quantity, it.Amount)
	}
	b.WriteString("確定填入核銷系統？")
	return prompter.Confirm(ctx, b.String(), 30*time.Second, true)
}

func saveMergedOCR(dir string, record domain.TransactionRecord, log *zap.Logger) error {
	path := filepath.Join(dir, fmt.Sprintf("merged_ocr_%s.json", uuid.NewString()[:8]))
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	log.Info("merged OCR saved", zap.String("path", path))
	return nil
}

func printJSON(w *os.File, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
