package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"expense-autofill/internal/domain"
)

const (
	defaultVisionBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultVisionModel   = "gemini-3.1-pro-preview"
)

const receiptsPrompt = `請辨識這張圖片中的台灣發票或收據。一張圖片可能包含多張收據，請全部辨識。
回傳 JSON 陣列，每張收據一個物件，包含以下欄位：
- date: 日期 (YYYY-MM-DD)
- vendor: 廠商/店家名稱
- amount: 總金額 (數字)
- tax_id: 統一編號 (8碼，若無則為空字串)
- invoice_no: 發票號碼 (若無則為空字串)
- items: 品項列表，每項含 name, spec, quantity, price
只回傳 JSON，不要其他文字，不要用 markdown code block。`

const captchaPrompt = `這是一張網站驗證碼圖片，背景是紅色，上面有白色數字。` +
	`請仔細辨識圖中的6位數字。只回傳純數字，不要空格或其他文字。`

// VisionClient extracts receipt data and solves verification codes
// through a hosted vision model's REST endpoint.
type VisionClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
	log        *zap.Logger
}

func NewVisionClient(apiKey string, log *zap.Logger) *VisionClient {
	return &VisionClient{
		httpClient: &http.Client{Timeout: 90 * time.Second},
		baseURL:    defaultVisionBaseURL,
		model:      defaultVisionModel,
		apiKey:     apiKey,
		log:        log,
	}
}

// wire types for the generateContent endpoint.
type visionPart struct {
	Text       string           `json:"text,omitempty"`
	InlineData *visionImagePart `json:"inline_data,omitempty"`
}

type visionImagePart struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type visionRequest struct {
	Contents []struct {
		Parts []visionPart `json:"parts"`
	} `json:"contents"`
}

type visionResponse struct {
	Candidates []struct {
		Content struct {
			Parts []visionPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// flexNumber keeps the raw text of a value the model emits either bare
// or quoted, sometimes with thousands separators ("1,250") that a plain
// json.Number rejects. Parsing is deferred to domain.ParseAmount.
type flexNumber string

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = flexNumber(s)
		return nil
	}
	if string(data) == "null" {
		*n = ""
		return nil
	}
	*n = flexNumber(data)
	return nil
}

func (n flexNumber) String() string { return string(n) }

func (n flexNumber) Int64() (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
}

// wireReceipt tolerates the model returning numbers either quoted or
// bare.
type wireReceipt struct {
	Date      string     `json:"date"`
	Vendor    string     `json:"vendor"`
	Amount    flexNumber `json:"amount"`
	TaxID     string     `json:"tax_id"`
	InvoiceNo string     `json:"invoice_no"`
	Items     []struct {
		Name     string     `json:"name"`
		Spec     string     `json:"spec"`
		Quantity flexNumber `json:"quantity"`
		Price    flexNumber `json:"price"`
	} `json:"items"`
}

// ExtractReceipts reads one photo, which may contain several receipts.
func (c *VisionClient) ExtractReceipts(ctx context.Context, image []byte, name string) ([]domain.Receipt, error) {
	text, err := c.generate(ctx, receiptsPrompt, image)
	if err != nil {
		return nil, fmt.Errorf("ocr %s: %w", name, err)
	}

	raw := stripFences(text)
	var wire []wireReceipt
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		// Older model revisions return a bare object for a single receipt.
		var one wireReceipt
		if err2 := json.Unmarshal([]byte(raw), &one); err2 != nil {
			return nil, fmt.Errorf("ocr %s: unparseable response: %w", name, err)
		}
		wire = []wireReceipt{one}
	}

	receipts := make([]domain.Receipt, 0, len(wire))
	for _, w := range wire {
		r := domain.Receipt{
			Date:        w.Date,
			Vendor:      w.Vendor,
			TaxID:       w.TaxID,
			InvoiceNo:   w.InvoiceNo,
			SourceImage: name,
		}
		r.Amount, err = domain.ParseAmount(w.Amount.String())
		if err != nil {
			c.log.Warn("receipt amount unreadable, using zero",
				zap.String("image", name), zap.String("amount", w.Amount.String()))
		}
		for _, it := range w.Items {
			item := domain.LineItem{Name: it.Name, Spec: it.Spec, Quantity: 1}
			if q, err := it.Quantity.Int64(); err == nil && q > 0 {
				item.Quantity = int(q)
			}
			if p, err := domain.ParseAmount(it.Price.String()); err == nil {
				item.Amount = p
			}
			r.Items = append(r.Items, item)
		}
		receipts = append(receipts, r)
	}
	c.log.Info("image recognized", zap.String("image", name), zap.Int("receipts", len(receipts)))
	return receipts, nil
}

// SolveCaptcha reads the login verification code image.
func (c *VisionClient) SolveCaptcha(ctx context.Context, image []byte) (string, error) {
	text, err := c.generate(ctx, captchaPrompt, image)
	if err != nil {
		return "", fmt.Errorf("solve captcha: %w", err)
	}
	var digits strings.Builder
	for _, r := range strings.TrimSpace(text) {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	code := digits.String()
	if code == "" {
		return "", fmt.Errorf("captcha response carries no digits: %q", text)
	}
	c.log.Debug("captcha solved", zap.Int("digits", len(code)))
	return code, nil
}

func (c *VisionClient) generate(ctx context.Context, prompt string, image []byte) (string, error) {
	var req visionRequest
	req.Contents = append(req.Contents, struct {
		Parts []visionPart `json:"parts"`
	}{Parts: []visionPart{
		{Text: prompt},
		{InlineData: &visionImagePart{
			MimeType: "image/png",
			Data:     base64.StdEncoding.EncodeToString(image),
		}},
	}})

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call vision endpoint: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var out visionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("vision endpoint error %d: %s", out.Error.Code, out.Error.Message)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("vision response has no candidates (status %d)", resp.StatusCode)
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

// stripFences removes a markdown code fence the model sometimes wraps
// around its JSON despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
