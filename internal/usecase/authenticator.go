package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// loginForm is the login page's only form, addressed positionally because
// the page predates named forms.
const loginForm Region = "document.forms[0]"

const captchaImageSelector = `img[src*="ValidCode"]`

// Credentials for the remote system.
type Credentials struct {
	Username string
	Password string
}

// Authenticator performs login: credentials plus an OCR-solved
// verification code, submitted through the page's hidden trigger. Success
// opens the application in a new window, which the transport adopts.
type Authenticator struct {
	transport Transport
	ocr       OCRClient
	loginURL  string
	log       *zap.Logger
}

func NewAuthenticator(transport Transport, ocr OCRClient, loginURL string, log *zap.Logger) *Authenticator {
	return &Authenticator{transport: transport, ocr: ocr, loginURL: loginURL, log: log}
}

// Authenticate tries up to maxAttempts logins. A rejected verification
// code costs one attempt and retries with a fresh image; rejected
// credentials stop immediately.
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials, maxAttempts int) error {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		a.log.Info("login attempt", zap.Int("attempt", attempt), zap.Int("max", maxAttempts))

		err := a.attempt(ctx, creds)
		if err == nil {
			a.log.Info("login succeeded")
			return nil
		}
		if errors.Is(err, ErrBadCredentials) {
			return err
		}
		a.log.Warn("login attempt failed", zap.Error(err))
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w after %d attempts", ErrAuthExhausted, maxAttempts)
}

func (a *Authenticator) attempt(ctx context.Context, creds Credentials) error {
	if err := a.transport.Navigate(ctx, a.loginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}

	if err := a.transport.SetField(ctx, loginForm, "ID", creds.Username); err != nil {
		return fmt.Errorf("fill account: %w", err)
	}
	if err := a.transport.SetField(ctx, loginForm, "PWD", creds.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}

	img, err := a.transport.ScreenshotElement(ctx, captchaImageSelector)
	if err != nil {
		return fmt.Errorf("capture verification code image: %w", err)
	}
	code, err := a.ocr.SolveCaptcha(ctx, img)
	if err != nil {
		return fmt.Errorf("solve verification code: %w", err)
	}
	if err := a.transport.SetField(ctx, loginForm, "CheckCode", code); err != nil {
		return fmt.Errorf("fill verification code: %w", err)
	}

	// The visible submit button is decorative; the page wires submission
	// to a hidden trigger.
	if err := a.transport.Evaluate(ctx, `document.getElementById('xEnter').click()`, nil); err != nil {
		return fmt.Errorf("invoke login trigger: %w", err)
	}

	if err := a.transport.AwaitMainWindow(ctx, 15*time.Second); err == nil {
		return nil
	}
	return a.classify(ctx)
}

// classify inspects the still-open login page for known failure phrases.
func (a *Authenticator) classify(ctx context.Context) error {
	body, err := a.transport.PageText(ctx)
	if err != nil {
		return fmt.Errorf("login outcome unreadable: %w", err)
	}
	switch {
	case strings.Contains(body, "帳號密碼錯誤"):
		return ErrBadCredentials
	case strings.Contains(body, "驗證碼"):
		return ErrBadVerifyCode
	default:
		return fmt.Errorf("login failed for unknown reason")
	}
}
