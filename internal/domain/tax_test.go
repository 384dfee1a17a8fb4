package domain_test

import (
	"fmt"
	"testing"

	"expense-autofill/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTax(t *testing.T) {
	tests := []struct {
		name  string
		items []domain.LineItem
		total int64
		want  []domain.LineItem
	}{
		{
			name:  "items already match total",
			items: []domain.LineItem{{Name: "紙箱", Quantity: 2, Amount: 100}},
			total: 100,
			want:  []domain.LineItem{{Name: "紙箱", Quantity: 2, Amount: 100}},
		},
		{
			name:  "single item absorbs tax",
			items: []domain.LineItem{{Name: "耗材", Quantity: 1, Amount: 100}},
			total: 105,
			want:  []domain.LineItem{{Name: "耗材", Quantity: 1, Amount: 105}},
		},
		{
			name: "multiple items get a tax difference row",
			items: []domain.LineItem{
				{Name: "甲", Quantity: 1, Amount: 60},
				{Name: "乙", Quantity: 1, Amount: 40},
			},
			total: 105,
			want: []domain.LineItem{
				{Name: "甲", Quantity: 1, Amount: 60},
				{Name: "乙", Quantity: 1, Amount: 40},
				{Name: "其他差額", Quantity: 1, Amount: 5},
			},
		},
		{
			name: "negative residual becomes a rounding row",
			items: []domain.LineItem{
				{Name: "甲", Quantity: 1, Amount: 60},
				{Name: "乙", Quantity: 1, Amount: 43},
			},
			total: 100,
			want: []domain.LineItem{
				{Name: "甲", Quantity: 1, Amount: 60},
				{Name: "乙", Quantity: 1, Amount: 43},
				{Name: "四捨五入差額", Quantity: 1, Amount: -3},
			},
		},
		{
			name: "labeled tax row folds into sole regular item",
			items: []domain.LineItem{
				{Name: "文具用品", Quantity: 1, Amount: 100},
				{Name: "營業稅", Quantity: 1, Amount: 5},
			},
			total: 105,
			want:  []domain.LineItem{{Name: "文具用品", Quantity: 1, Amount: 105}},
		},
		{
			name: "labeled tax row collapses to a difference row",
			items: []domain.LineItem{
				{Name: "甲", Quantity: 1, Amount: 60},
				{Name: "乙", Quantity: 1, Amount: 40},
				{Name: "稅", Quantity: 1, Amount: 5},
			},
			total: 105,
			want: []domain.LineItem{
				{Name: "甲", Quantity: 1, Amount: 60},
				{Name: "乙", Quantity: 1, Amount: 40},
				{Name: "其他差額", Quantity: 1, Amount: 5},
			},
		},
		{
			name: "english tax label recognized",
			items: []domain.LineItem{
				{Name: "Widget", Quantity: 1, Amount: 200},
				{Name: "VAT 5%", Quantity: 1, Amount: 10},
			},
			total: 210,
			want:  []domain.LineItem{{Name: "Widget", Quantity: 1, Amount: 210}},
		},
		{
			name: "tax-only list kept as-is",
			items: []domain.LineItem{
				{Name: "營業稅", Quantity: 1, Amount: 105},
			},
			total: 105,
			want: []domain.LineItem{
				{Name: "營業稅", Quantity: 1, Amount: 105},
			},
		},
		{
			name:  "non-positive total passes through",
			items: []domain.LineItem{{Name: "甲", Quantity: 1, Amount: 60}},
			total: 0,
			want:  []domain.LineItem{{Name: "甲", Quantity: 1, Amount: 60}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.NormalizeTax(tt.items, tt.total)
			assert.Equal(t, tt.want, got)
			if tt.total > 0 {
				assert.Equal(t, tt.total, domain.SumItems(got))
			}
		})
	}
}

func TestNormalizeTax_DoesNotMutateInput(t *testing.T) {
	items := []domain.LineItem{
		{Name: "耗材", Quantity: 1, Amount: 100},
		{Name: "營業稅", Quantity: 1, Amount: 5},
	}
	domain.NormalizeTax(items, 110)
	assert.Equal(t, int64(100), items[0].Amount)
	assert.Equal(t, "營業稅", items[1].Name)
}

func TestFitRows(t *testing.T) {
	var items []domain.LineItem
	for i := 0; i < 17; i++ {
		items = append(items, domain.LineItem{
			Name:     fmt.Sprintf("品項%d", i+1),
			Quantity: 1,
			Amount:   int64(10 * (i + 1)),
		})
	}
	total := domain.SumItems(items)

	got := domain.FitRows(items)
	assert.Len(t, got, domain.MaxLineItemRows)
	assert.Equal(t, total, domain.SumItems(got))

	last := got[len(got)-1]
	assert.Equal(t, "其他明細(3項)", last.Name)
	assert.Equal(t, int64(150+160+170), last.Amount)
	assert.Equal(t, items[:14], got[:14])
}

func TestFitRows_ShortListUntouched(t *testing.T) {
	items := []domain.LineItem{{Name: "甲", Quantity: 1, Amount: 10}}
	assert.Equal(t, items, domain.FitRows(items))
}
