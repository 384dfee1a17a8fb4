package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// visionStub serves a canned model reply and records the request.
func visionStub(t *testing.T, replyText string) (*VisionClient, *http.Request) {
	t.Helper()
	captured := &http.Request{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = *r
		reply := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"parts": []map[string]any{{"text": replyText}},
				}},
			},
		}
		json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)

	c := NewVisionClient("test-key", zap.NewNop())
	c.baseURL = srv.URL
	return c, captured
}

func TestExtractReceiptsParsesArray(t *testing.T) {
	reply := `[
		{"date":"2025-03-15","vendor":"大同文具行","amount":"1,250","tax_id":"12345678",
		 "invoice_no":"AB12345678",
		 "items":[{"name":"原子筆","spec":"藍","quantity":3,"price":90},
		          {"name":"筆記本","quantity":0,"price":60}]},
		{"date":"2025-03-16","vendor":"乙商行","amount":200,
		 "items":[{"name":"運費","quantity":"2","price":"1,000"}]}
	]`
	c, req := visionStub(t, reply)

	receipts, err := c.ExtractReceipts(context.Background(), []byte("img"), "r1.jpg")
	require.NoError(t, err)
	require.Len(t, receipts, 2)

	assert.Equal(t, "/models/"+defaultVisionModel+":generateContent", req.URL.Path)
	assert.Equal(t, "test-key", req.Header.Get("x-goog-api-key"))

	first := receipts[0]
	assert.Equal(t, "大同文具行", first.Vendor)
	assert.Equal(t, int64(1250), first.Amount)
	assert.Equal(t, "AB12345678", first.InvoiceNo)
	assert.Equal(t, "r1.jpg", first.SourceImage)
	require.Len(t, first.Items, 2)
	assert.Equal(t, 3, first.Items[0].Quantity)
	assert.Equal(t, int64(90), first.Items[0].Amount)
	// Zero or missing quantity falls back to one.
	assert.Equal(t, 1, first.Items[1].Quantity)

	assert.Equal(t, int64(200), receipts[1].Amount)
	require.Len(t, receipts[1].Items, 1)
	assert.Equal(t, 2, receipts[1].Items[0].Quantity)
	assert.Equal(t, int64(1000), receipts[1].Items[0].Amount)
}

func TestExtractReceiptsAcceptsFencedSingleObject(t *testing.T) {
	reply := "```json\n{\"date\":\"2025-03-15\",\"vendor\":\"商行\",\"amount\":100,\"items\":[]}\n```"
	c, _ := visionStub(t, reply)

	receipts, err := c.ExtractReceipts(context.Background(), []byte("img"), "r1.jpg")
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, "商行", receipts[0].Vendor)
	assert.Equal(t, int64(100), receipts[0].Amount)
}

func TestExtractReceiptsRejectsGarbage(t *testing.T) {
	c, _ := visionStub(t, "抱歉，我無法辨識這張圖片。")
	_, err := c.ExtractReceipts(context.Background(), []byte("img"), "r1.jpg")
	assert.Error(t, err)
}

func TestSolveCaptchaKeepsDigitsOnly(t *testing.T) {
	c, _ := visionStub(t, "驗證碼是 482913。")
	code, err := c.SolveCaptcha(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "482913", code)
}

func TestSolveCaptchaFailsWithoutDigits(t *testing.T) {
	c, _ := visionStub(t, "圖片模糊，無法辨識")
	_, err := c.SolveCaptcha(context.Background(), []byte("img"))
	assert.Error(t, err)
}

func TestGenerateSurfacesEndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewVisionClient("bad-key", zap.NewNop())
	c.baseURL = srv.URL
	_, err := c.SolveCaptcha(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no language", "```\n[1,2]\n```", "[1,2]"},
		{"surrounding space", "  {\"a\":1}\n", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}
