package models

import (
	"context"
	"time"

	"github.com/agridatabd/coldstore_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockMovement is one signed line of the append-only movement ledger.
// Rows are never updated or deleted; corrections are offsetting entries.
type StockMovement struct {
	BusinessId string          `gorm:"primaryKey;size:64" json:"business_id"`
	DocNumber  string          `gorm:"primaryKey;size:100" json:"doc_number"`
	DocRow     int             `gorm:"primaryKey;autoIncrement:false" json:"doc_row"`
	Sign       int             `gorm:"primaryKey;autoIncrement:false" json:"sign"`
	TokenNo    string          `gorm:"size:50;index" json:"token_no"`
	DocType    StockDocType    `gorm:"size:20" json:"doc_type"`
	Action     string          `gorm:"size:100" json:"action"`
	Item       string          `gorm:"size:100" json:"item"`
	Unit       string          `gorm:"size:100" json:"unit"`
	Floor      string          `gorm:"size:100" json:"floor"`
	Pocket     string          `gorm:"size:100" json:"pocket"`
	Qty        decimal.Decimal `gorm:"type:decimal(20,6)" json:"qty"`
	Value      decimal.Decimal `gorm:"type:decimal(30,6)" json:"value"`
	MovedAt    time.Time       `json:"moved_at"`
	Year       int             `json:"year"`
	Period     int             `json:"period"`
	AuditFields
}

type StockMovementLine struct {
	Item   string
	Unit   string
	Floor  string
	Pocket string
	Sign   int
	Action string
	Qty    decimal.Decimal
	Value  decimal.Decimal
}

// FiscalPeriod maps a posting date onto the 12-month fiscal calendar that is
// offset by six months from the calendar year.
func FiscalPeriod(t time.Time) int {
	period := (int(t.Month()) + 6) % 12
	if period == 0 {
		period = 12
	}
	return period
}

// PostStockMovements appends one ledger row per line. Row indexes continue
// from the last row already posted under the document number, so a document
// can receive several postings (incremental certificate detail batches)
// without colliding on the primary key. The ledger does not block negative
// balances itself; callers run AssertStockAvailable before posting debits.
func PostStockMovements(tx *gorm.DB, ctx context.Context, businessId string, tokenNo string, docNumber string, docType StockDocType, lines []StockMovementLine) ([]*StockMovement, error) {
	var lastRow int
	err := tx.Model(&StockMovement{}).
		Where("business_id = ? AND doc_number = ?", businessId, docNumber).
		Select("COALESCE(MAX(doc_row), 0)").
		Scan(&lastRow).Error
	if err != nil {
		return nil, err
	}

	now := time.Now()
	movements := make([]*StockMovement, 0, len(lines))
	for i, line := range lines {
		movement := StockMovement{
			BusinessId:  businessId,
			DocNumber:   docNumber,
			DocRow:      lastRow + i + 1,
			Sign:        line.Sign,
			TokenNo:     tokenNo,
			DocType:     docType,
			Action:      line.Action,
			Item:        line.Item,
			Unit:        line.Unit,
			Floor:       line.Floor,
			Pocket:      line.Pocket,
			Qty:         line.Qty,
			Value:       line.Value,
			MovedAt:     now,
			Year:        now.Year(),
			Period:      FiscalPeriod(now),
			AuditFields: auditStamp(ctx),
		}
		movements = append(movements, &movement)
	}
	if len(movements) == 0 {
		return movements, nil
	}
	if err := tx.Create(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// CurrentStockLevel is the derived balance for a location key: the running
// sum of signed quantities over the ledger. Absent keys read as 0.
func CurrentStockLevel(tx *gorm.DB, ctx context.Context, businessId string, tokenNo string, unit string, floor string, pocket string) (decimal.Decimal, error) {
	var level decimal.Decimal
	err := tx.WithContext(ctx).Model(&StockMovement{}).
		Select("COALESCE(SUM(sign * qty), 0)").
		Where("business_id = ? AND token_no = ? AND unit = ? AND floor = ? AND pocket = ?",
			businessId, tokenNo, unit, floor, pocket).
		Scan(&level).Error
	if err != nil {
		return decimal.Zero, err
	}
	return level, nil
}

// AssertStockAvailable fails when the derived level of the location is below
// the requested debit quantity.
func AssertStockAvailable(tx *gorm.DB, ctx context.Context, businessId string, tokenNo string, unit string, floor string, pocket string, requested decimal.Decimal) error {
	available, err := CurrentStockLevel(tx, ctx, businessId, tokenNo, unit, floor, pocket)
	if err != nil {
		return err
	}
	if available.LessThan(requested) {
		return &utils.InsufficientStockError{
			Unit:      unit,
			Floor:     floor,
			Pocket:    pocket,
			Available: available,
			Requested: requested,
		}
	}
	return nil
}

// StockBalance is one row of the current-stock view: the derived level per
// (token, unit, floor, pocket) joined with the certificate's customer
// snapshot.
type StockBalance struct {
	TokenNo       string          `json:"token_no"`
	Unit          string          `json:"unit"`
	Floor         string          `json:"floor"`
	Pocket        string          `json:"pocket"`
	NumberOfSacks decimal.Decimal `json:"number_of_sacks"`
	CustomerCode  string          `json:"customer_code"`
	CustomerName  string          `json:"customer_name"`
	Mobile        string          `json:"mobile"`
}

type StockBalanceFilter struct {
	TokenNo string
	Mobile  string
	Pocket  string
}

// StockBalances computes the current-stock view on read. This replaces a
// separately maintained stock table; the ledger is the single source of
// truth.
func StockBalances(tx *gorm.DB, ctx context.Context, businessId string, filter StockBalanceFilter) ([]*StockBalance, error) {
	where := "m.business_id = ?"
	args := []any{businessId}
	if filter.TokenNo != "" {
		where += " AND m.token_no = ?"
		args = append(args, filter.TokenNo)
	}
	if filter.Mobile != "" {
		where += " AND c.mobile = ?"
		args = append(args, filter.Mobile)
	}
	if filter.Pocket != "" {
		where += " AND m.pocket = ?"
		args = append(args, filter.Pocket)
	}

	sql := `
SELECT
	m.token_no,
	m.unit,
	m.floor,
	m.pocket,
	SUM(m.sign * m.qty) AS number_of_sacks,
	COALESCE(c.customer_code, '') AS customer_code,
	COALESCE(c.customer_name, '') AS customer_name,
	COALESCE(c.mobile, '') AS mobile
FROM
	stock_movements m
	LEFT JOIN certificates c ON c.business_id = m.business_id AND c.token_no = m.token_no
WHERE
	` + where + `
GROUP BY
	m.token_no, m.unit, m.floor, m.pocket, c.customer_code, c.customer_name, c.mobile
HAVING
	SUM(m.sign * m.qty) <> 0
`

	var rows []*StockBalance
	if err := tx.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
