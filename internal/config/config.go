// Package config loads the runtime configuration: a YAML file for the
// remote-system knobs and environment variables for credentials, which
// never belong in a file under version control.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	SystemURL   string `yaml:"system_url"`
	ReceiptsDir string `yaml:"receipts_dir"`
	OutputDir   string `yaml:"output_dir"`
	SequenceDB  string `yaml:"sequence_db"`

	// PayeeCode is the fixed payee identifier written into the payee
	// section; BankKeyword picks the account when the selection pop-up
	// lists several.
	PayeeCode   string `yaml:"payee_code"`
	BankKeyword string `yaml:"bank_keyword"`

	// SubjectCode is the accounting subject for the budget header;
	// UseKeyword prefers a funding-use entry by substring.
	SubjectCode string `yaml:"subject_code"`
	UseKeyword  string `yaml:"use_keyword"`

	MaxLoginAttempts int `yaml:"max_login_attempts"`

	// From environment only.
	Username  string `yaml:"-"`
	Password  string `yaml:"-"`
	OCRAPIKey string `yaml:"-"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		SystemURL:        "https://account.ncut.edu.tw/APSWIS_Q/Login_L_Q.asp",
		ReceiptsDir:      "receipts",
		OutputDir:        "output",
		SequenceDB:       "output/receipt_seq.db",
		BankKeyword:      "郵局",
		SubjectCode:      "110704-8012",
		MaxLoginAttempts: 5,
	}
}

// Load reads the YAML file at path over the defaults and overlays
// credentials from the environment. A missing file is not an error; a
// malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.Username = os.Getenv("AUTOFILL_USERNAME")
	cfg.Password = os.Getenv("AUTOFILL_PASSWORD")
	cfg.OCRAPIKey = os.Getenv("OCR_API_KEY")
	return cfg, nil
}

// Validate checks the parts every run needs. OCR and credential checks
// live here rather than at use sites so a bad environment fails fast.
func (c Config) Validate(needLogin bool) error {
	if c.OCRAPIKey == "" {
		return fmt.Errorf("OCR_API_KEY is not set")
	}
	if needLogin {
		if c.Username == "" || c.Password == "" {
			return fmt.Errorf("AUTOFILL_USERNAME / AUTOFILL_PASSWORD are not set")
		}
		if c.SystemURL == "" {
			return fmt.Errorf("system_url is empty")
		}
		if c.PayeeCode == "" {
			return fmt.Errorf("payee_code is empty")
		}
	}
	return nil
}
