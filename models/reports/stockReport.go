package reports

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/agridatabd/coldstore_backend/config"
	"github.com/agridatabd/coldstore_backend/models"
	"github.com/agridatabd/coldstore_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// TokenLedgerRow is one ledger line on a token's movement statement.
type TokenLedgerRow struct {
	DocNumber string          `json:"doc_number"`
	DocType   string          `json:"doc_type"`
	Action    string          `json:"action"`
	Unit      string          `json:"unit"`
	Floor     string          `json:"floor"`
	Pocket    string          `json:"pocket"`
	SignedQty decimal.Decimal `json:"signed_qty"`
	MovedAt   time.Time       `json:"moved_at"`
}

// GetTokenLedgerReport returns every movement recorded for a token in
// posting order, quantities signed.
func GetTokenLedgerReport(ctx context.Context, tokenNo string) ([]*TokenLedgerRow, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewError(utils.ErrorKindInvalidArgument, "business id is required")
	}

	sql := `
SELECT
    doc_number,
    doc_type,
    action,
    unit,
    floor,
    pocket,
    sign * qty AS signed_qty,
    moved_at
FROM
    stock_movements
WHERE
    business_id = @businessId AND token_no = @tokenNo
ORDER BY moved_at, doc_number, doc_row;
`

	var rows []*TokenLedgerRow
	db := config.GetDB()
	err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"businessId": businessId,
		"tokenNo":    tokenNo,
	}).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetStockBalanceReport returns the current non-zero balances, optionally
// narrowed by token, customer mobile or pocket.
func GetStockBalanceReport(ctx context.Context, filter models.StockBalanceFilter) ([]*models.StockBalance, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewError(utils.ErrorKindInvalidArgument, "business id is required")
	}
	return models.StockBalances(config.GetDB().WithContext(ctx), ctx, businessId, filter)
}

// ExportStockBalanceExcel streams the balance report as an xlsx download.
// Errors before the first byte is written are returned for the caller's
// error mapping; a failure mid-stream can only be logged.
func ExportStockBalanceExcel(ctx context.Context, w http.ResponseWriter, filter models.StockBalanceFilter) error {
	data, err := GetStockBalanceReport(ctx, filter)
	if err != nil {
		return err
	}
	f := excelize.NewFile()
	sheetName := "Sheet1"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	// Add headers
	f.SetCellValue(sheetName, "A1", "TokenNo")
	f.SetCellValue(sheetName, "B1", "CustomerName")
	f.SetCellValue(sheetName, "C1", "Mobile")
	f.SetCellValue(sheetName, "D1", "Unit")
	f.SetCellValue(sheetName, "E1", "Floor")
	f.SetCellValue(sheetName, "F1", "Pocket")
	f.SetCellValue(sheetName, "G1", "NumberOfSacks")

	// Add data
	for i, d := range data {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+row, d.TokenNo)
		f.SetCellValue(sheetName, "B"+row, d.CustomerName)
		f.SetCellValue(sheetName, "C"+row, d.Mobile)
		f.SetCellValue(sheetName, "D"+row, d.Unit)
		f.SetCellValue(sheetName, "E"+row, d.Floor)
		f.SetCellValue(sheetName, "F"+row, d.Pocket)
		f.SetCellValue(sheetName, "G"+row, d.NumberOfSacks)
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=stock_balance.xlsx")
	if err := f.Write(w); err != nil {
		config.LogError(config.GetLogger(), "stockReport.go", "ExportStockBalanceExcel", "write export", nil, err)
	}
	return nil
}
