package models

import (
	"context"

	"github.com/agridatabd/coldstore_backend/config"
	"github.com/agridatabd/coldstore_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// defaultItemCode is the single potato item the challan line posts against.
const defaultItemCode = "01-01-001-0001"

// DeliveryChallan releases stock held under a certificate back to the
// customer. The header snapshots the certificate's customer and carries
// the settlement charges; lines pull quantity out of specific locations.
type DeliveryChallan struct {
	BusinessId      string          `gorm:"primaryKey;size:64" json:"business_id"`
	ChallanNo       string          `gorm:"primaryKey;size:50" json:"challan_no"`
	TokenNo         string          `gorm:"primaryKey;size:50" json:"token_no"`
	CustomerCode    string          `gorm:"size:50" json:"customer_code"`
	Mobile          string          `gorm:"size:20" json:"mobile"`
	Currency        string          `gorm:"size:10;default:BDT" json:"currency"`
	HandlingCharge  decimal.Decimal `gorm:"type:decimal(20,4)" json:"handling_charge"`
	EmptySackQty    int             `json:"empty_sack_qty"`
	EmptySackCharge decimal.Decimal `gorm:"type:decimal(20,4)" json:"empty_sack_charge"`
	FanCharge       decimal.Decimal `gorm:"type:decimal(20,4)" json:"fan_charge"`
	InterestAmount  decimal.Decimal `gorm:"type:decimal(20,4)" json:"interest_amount"`
	LoanRepayment   decimal.Decimal `gorm:"type:decimal(20,4)" json:"loan_repayment"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(20,4)" json:"total_amount"`
	Status          ChallanStatus   `gorm:"size:20;default:Open" json:"status"`
	AuditFields
}

// DeliveryChallanDetail is one delivery line: a location, a quantity and
// the amount it contributes at the certificate's rent rate.
type DeliveryChallanDetail struct {
	BusinessId string          `gorm:"primaryKey;size:64" json:"business_id"`
	ChallanNo  string          `gorm:"primaryKey;size:50" json:"challan_no"`
	TokenNo    string          `gorm:"primaryKey;size:50" json:"token_no"`
	Row        int             `gorm:"column:row_no;primaryKey;autoIncrement:false" json:"row"`
	Item       string          `gorm:"size:100" json:"item"`
	Unit       string          `gorm:"size:100" json:"unit"`
	Floor      string          `gorm:"size:100" json:"floor"`
	Pocket     string          `gorm:"size:100" json:"pocket"`
	Qty        decimal.Decimal `gorm:"type:decimal(20,6)" json:"qty"`
	Rate       decimal.Decimal `gorm:"type:decimal(20,4)" json:"rate"`
	LineAmount decimal.Decimal `gorm:"type:decimal(20,4)" json:"line_amount"`
	AuditFields
}

// NewChallanLine is one requested delivery line.
type NewChallanLine struct {
	Unit   string          `json:"unit" binding:"required"`
	Floor  string          `json:"floor" binding:"required"`
	Pocket string          `json:"pocket" binding:"required"`
	Qty    decimal.Decimal `json:"qty" binding:"required"`
}

// NewDeliveryChallan is the input for CreateDeliveryChallan.
type NewDeliveryChallan struct {
	TokenNo         string           `json:"token_no" binding:"required"`
	Lines           []NewChallanLine `json:"lines" binding:"required"`
	HandlingCharge  decimal.Decimal  `json:"handling_charge"`
	EmptySackQty    int              `json:"empty_sack_qty"`
	EmptySackCharge decimal.Decimal  `json:"empty_sack_charge"`
	FanCharge       decimal.Decimal  `json:"fan_charge"`
	InterestAmount  decimal.Decimal  `json:"interest_amount"`
	LoanRepayment   decimal.Decimal  `json:"loan_repayment"`
}

// ChallanResult pairs the issued header with its lines.
type ChallanResult struct {
	Challan *DeliveryChallan         `json:"challan"`
	Details []*DeliveryChallanDetail `json:"details"`
}

type challanLocation struct {
	Unit   string
	Floor  string
	Pocket string
}

// requestedByLocation sums line quantities per source location. Two lines
// naming the same pocket draw from one balance, so the availability check
// must see their combined quantity.
func requestedByLocation(lines []NewChallanLine) map[challanLocation]decimal.Decimal {
	requested := make(map[challanLocation]decimal.Decimal, len(lines))
	for _, line := range lines {
		key := challanLocation{Unit: line.Unit, Floor: line.Floor, Pocket: line.Pocket}
		requested[key] = requested[key].Add(line.Qty)
	}
	return requested
}

// settlementTotal computes the amount due on a challan: item amounts plus
// the charges, minus the loan repayment credited against the delivery.
func settlementTotal(itemsTotal decimal.Decimal, challan *DeliveryChallan) decimal.Decimal {
	return itemsTotal.
		Add(challan.HandlingCharge).
		Add(challan.EmptySackCharge).
		Add(challan.FanCharge).
		Add(challan.InterestAmount).
		Sub(challan.LoanRepayment)
}

// CreateDeliveryChallan issues a challan against the certificate for the
// token. Every line's source location is checked for stock before anything
// is written; lines, ledger debits and the settled header then commit in
// one transaction.
func CreateDeliveryChallan(ctx context.Context, input *NewDeliveryChallan) (*ChallanResult, error) {
	businessId, err := resolveTenant(ctx)
	if err != nil {
		return nil, err
	}
	if len(input.Lines) == 0 {
		return nil, utils.NewError(utils.ErrorKindInvalidArgument, "at least one delivery line is required")
	}
	for i, line := range input.Lines {
		if !line.Qty.IsPositive() {
			return nil, utils.NewError(utils.ErrorKindInvalidArgument,
				"delivery line %d: quantity must be positive", i)
		}
	}

	lease, err := AcquireSequence(ctx, businessId, ChallanSeries)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	db := config.GetDB()
	var result ChallanResult
	err = db.Transaction(func(tx *gorm.DB) error {
		certificate, err := utils.FetchByNumberTx[Certificate](tx, businessId, "token_no", input.TokenNo)
		if err != nil {
			if err == utils.ErrorRecordNotFound {
				return utils.NewError(utils.ErrorKindNotFound,
					"certificate not found for token %s", input.TokenNo)
			}
			return err
		}

		for key, qty := range requestedByLocation(input.Lines) {
			err := AssertStockAvailable(tx, ctx, businessId, input.TokenNo,
				key.Unit, key.Floor, key.Pocket, qty)
			if err != nil {
				return err
			}
		}

		challanNo, err := lease.Next(tx)
		if err != nil {
			return err
		}

		stamp := auditStamp(ctx)
		challan := &DeliveryChallan{
			BusinessId:      businessId,
			ChallanNo:       challanNo,
			TokenNo:         input.TokenNo,
			CustomerCode:    certificate.CustomerCode,
			Mobile:          certificate.Mobile,
			Currency:        "BDT",
			HandlingCharge:  input.HandlingCharge,
			EmptySackQty:    input.EmptySackQty,
			EmptySackCharge: input.EmptySackCharge,
			FanCharge:       input.FanCharge,
			InterestAmount:  input.InterestAmount,
			LoanRepayment:   input.LoanRepayment,
			Status:          ChallanStatusOpen,
			AuditFields:     stamp,
		}
		if err := tx.Create(challan).Error; err != nil {
			return err
		}

		rate := certificate.RentPerSack
		itemsTotal := decimal.Zero
		details := make([]*DeliveryChallanDetail, 0, len(input.Lines))
		movements := make([]StockMovementLine, 0, len(input.Lines))
		for i, line := range input.Lines {
			lineAmount := line.Qty.Mul(rate)
			itemsTotal = itemsTotal.Add(lineAmount)
			details = append(details, &DeliveryChallanDetail{
				BusinessId:  businessId,
				ChallanNo:   challanNo,
				TokenNo:     input.TokenNo,
				Row:         i + 1,
				Item:        defaultItemCode,
				Unit:        line.Unit,
				Floor:       line.Floor,
				Pocket:      line.Pocket,
				Qty:         line.Qty,
				Rate:        rate,
				LineAmount:  lineAmount,
				AuditFields: stamp,
			})
			movements = append(movements, StockMovementLine{
				Item:   defaultItemCode,
				Unit:   line.Unit,
				Floor:  line.Floor,
				Pocket: line.Pocket,
				Sign:   -1,
				Action: StockActionDeliveryOut,
				Qty:    line.Qty,
			})
		}
		if err := tx.Create(&details).Error; err != nil {
			return err
		}
		if _, err := PostStockMovements(tx, ctx, businessId, input.TokenNo, challanNo,
			StockDocTypeChallan, movements); err != nil {
			return err
		}

		challan.TotalAmount = settlementTotal(itemsTotal, challan)
		challan.Status = ChallanStatusIssued
		err = tx.Model(&DeliveryChallan{}).
			Where("business_id = ? AND challan_no = ? AND token_no = ?", businessId, challanNo, input.TokenNo).
			Updates(map[string]interface{}{
				"total_amount": challan.TotalAmount,
				"status":       ChallanStatusIssued,
			}).Error
		if err != nil {
			return err
		}

		result = ChallanResult{Challan: challan, Details: details}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetDeliveryChallan fetches a challan header with its lines.
func GetDeliveryChallan(ctx context.Context, challanNo string) (*ChallanResult, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	challan, err := utils.FetchByNumber[DeliveryChallan](ctx, businessId, "challan_no", challanNo)
	if err != nil {
		if err == utils.ErrorRecordNotFound {
			return nil, utils.NewError(utils.ErrorKindNotFound, "challan %s not found", challanNo)
		}
		return nil, err
	}
	var details []*DeliveryChallanDetail
	err = config.GetDB().
		Where("business_id = ? AND challan_no = ? AND token_no = ?", businessId, challanNo, challan.TokenNo).
		Order("row_no").Find(&details).Error
	if err != nil {
		return nil, err
	}
	return &ChallanResult{Challan: challan, Details: details}, nil
}

// ListDeliveryChallans returns the tenant's challans, newest first.
func ListDeliveryChallans(ctx context.Context) ([]*DeliveryChallan, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var challans []*DeliveryChallan
	err = config.GetDB().Where("business_id = ?", businessId).
		Order("challan_no desc").Find(&challans).Error
	if err != nil {
		return nil, err
	}
	return challans, nil
}
