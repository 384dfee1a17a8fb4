package usecase_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"expense-autofill/internal/domain"
	"expense-autofill/internal/usecase"
)

const itemsRegion = usecase.Region("MAIN.APPP.FORM1")

func TestLineItemsFillerWritesRowsAndDate(t *testing.T) {
	t.Parallel()
	tr := newFakeTransport()
	f := usecase.NewLineItemsFiller(tr, zap.NewNop())

	record := domain.TransactionRecord{
		Date:  "2025-03-15",
		Payee: "大同文具行",
		Total: 150,
		Items: []domain.LineItem{
			{Name: "原子筆", Quantity: 3, Amount: 90},
			{Name: "筆記本", Quantity: 2, Amount: 60},
		},
	}
	res, err := f.Fill(context.Background(), itemsRegion, record)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Written)
	assert.Zero(t, res.Truncated)
	assert.Equal(t, "大同文具行 - 原子筆, 筆記本", tr.field(itemsRegion, "CONTENT"))

	assert.True(t, tr.checked[key(itemsRegion, "RCDAT_1")])
	assert.Equal(t, "114", tr.field(itemsRegion, "RCDAT_Y"))
	assert.Equal(t, "03", tr.field(itemsRegion, "RCDAT_M"))
	assert.Equal(t, "15", tr.field(itemsRegion, "RCDAT_D"))

	assert.Equal(t, "原子筆", tr.field(itemsRegion, "PRODUCT_1"))
	assert.Equal(t, "式", tr.field(itemsRegion, "SERUNIT_1"))
	assert.Equal(t, "3", tr.field(itemsRegion, "QUANTITY_1"))
	assert.Equal(t, "90", tr.field(itemsRegion, "AMOUNT_1"))
	assert.Equal(t, "筆記本", tr.field(itemsRegion, "PRODUCT_2"))
	assert.Equal(t, "60", tr.field(itemsRegion, "AMOUNT_2"))
}

func TestLineItemsFillerCollapsesOverflowRows(t *testing.T) {
	t.Parallel()
	tr := newFakeTransport()
	f := usecase.NewLineItemsFiller(tr, zap.NewNop())

	var items []domain.LineItem
	for i := 0; i < 17; i++ {
		items = append(items, domain.LineItem{
			Name:     fmt.Sprintf("品項%d", i+1),
			Quantity: 1,
			Amount:   10,
		})
	}
	record := domain.TransactionRecord{Date: "2025-03-15", Payee: "廠商", Total: 170, Items: items}

	res, err := f.Fill(context.Background(), itemsRegion, record)
	require.NoError(t, err)

	assert.Equal(t, domain.MaxLineItemRows, res.Written)
	assert.Equal(t, 3, res.Truncated)
	assert.Equal(t, "品項14", tr.field(itemsRegion, "PRODUCT_14"))
	assert.Equal(t, "其他明細(3項)", tr.field(itemsRegion, "PRODUCT_15"))
	assert.Equal(t, "30", tr.field(itemsRegion, "AMOUNT_15"))
	assert.Empty(t, tr.field(itemsRegion, "PRODUCT_16"))
}

func TestLineItemsFillerFoldsSeparateTax(t *testing.T) {
	t.Parallel()
	tr := newFakeTransport()
	f := usecase.NewLineItemsFiller(tr, zap.NewNop())

	record := domain.TransactionRecord{
		Date:  "2025-03-15",
		Payee: "電料行",
		Total: 105,
		Items: []domain.LineItem{
			{Name: "電阻 10kΩ", Quantity: 10, Amount: 60},
			{Name: "電容", Quantity: 4, Amount: 40},
		},
	}
	res, err := f.Fill(context.Background(), itemsRegion, record)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Written)
	// Big5 cannot carry the omega, so the row lands ASCII-substituted.
	assert.Equal(t, "電阻 10kohm", tr.field(itemsRegion, "PRODUCT_1"))
	assert.Equal(t, "其他差額", tr.field(itemsRegion, "PRODUCT_3"))
	assert.Equal(t, "5", tr.field(itemsRegion, "AMOUNT_3"))
}
