package models

import (
	"context"

	"github.com/agridatabd/coldstore_backend/config"
	"github.com/agridatabd/coldstore_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransferOrder relocates part of a token's stock between storage
// locations. Creation validates the source balance and posts a matched
// debit/credit ledger pair in the same transaction.
type TransferOrder struct {
	BusinessId    string              `gorm:"primaryKey;size:64" json:"business_id"`
	TransferNo    string              `gorm:"primaryKey;size:50" json:"transfer_no"`
	TokenNo       string              `gorm:"size:50;not null;index" json:"token_no"`
	FromUnit      string              `gorm:"size:100" json:"from_unit"`
	FromFloor     string              `gorm:"size:100" json:"from_floor"`
	FromPocket    string              `gorm:"size:100" json:"from_pocket"`
	ToUnit        string              `gorm:"size:100" json:"to_unit"`
	ToFloor       string              `gorm:"size:100" json:"to_floor"`
	ToPocket      string              `gorm:"size:100" json:"to_pocket"`
	NumberOfSacks int                 `json:"number_of_sacks"`
	Status        TransferOrderStatus `gorm:"size:20;default:Open" json:"status"`
	Remarks       string              `json:"remarks"`
	AuditFields
}

// NewTransferOrder is the input for CreateTransferOrder.
type NewTransferOrder struct {
	TokenNo       string `json:"token_no" binding:"required"`
	FromUnit      string `json:"from_unit" binding:"required"`
	FromFloor     string `json:"from_floor" binding:"required"`
	FromPocket    string `json:"from_pocket" binding:"required"`
	ToUnit        string `json:"to_unit" binding:"required"`
	ToFloor       string `json:"to_floor" binding:"required"`
	ToPocket      string `json:"to_pocket" binding:"required"`
	NumberOfSacks int    `json:"number_of_sacks" binding:"required"`
	Remarks       string `json:"remarks"`
}

// transferMovementPair builds the two ledger lines for a transfer: row 1
// debits the source, row 2 credits the destination, same quantity both ways.
func transferMovementPair(order *TransferOrder) []StockMovementLine {
	qty := decimal.NewFromInt(int64(order.NumberOfSacks))
	return []StockMovementLine{
		{
			Unit:   order.FromUnit,
			Floor:  order.FromFloor,
			Pocket: order.FromPocket,
			Sign:   -1,
			Action: StockActionTransferOut,
			Qty:    qty,
		},
		{
			Unit:   order.ToUnit,
			Floor:  order.ToFloor,
			Pocket: order.ToPocket,
			Sign:   1,
			Action: StockActionTransferIn,
			Qty:    qty,
		},
	}
}

// CreateTransferOrder validates source stock, numbers the order and posts
// the movement pair atomically. The order lands in "In Progress" once its
// ledger rows are written.
func CreateTransferOrder(ctx context.Context, input *NewTransferOrder) (*TransferOrder, error) {
	businessId, err := resolveTenant(ctx)
	if err != nil {
		return nil, err
	}
	if input.NumberOfSacks <= 0 {
		return nil, utils.NewError(utils.ErrorKindInvalidArgument,
			"number of sacks must be positive, got %d", input.NumberOfSacks)
	}

	lease, err := AcquireSequence(ctx, businessId, TransferOrderSeries)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	db := config.GetDB()
	var order *TransferOrder
	err = db.Transaction(func(tx *gorm.DB) error {
		requested := decimal.NewFromInt(int64(input.NumberOfSacks))
		err := AssertStockAvailable(tx, ctx, businessId, input.TokenNo,
			input.FromUnit, input.FromFloor, input.FromPocket, requested)
		if err != nil {
			return err
		}

		transferNo, err := lease.Next(tx)
		if err != nil {
			return err
		}

		order = &TransferOrder{
			BusinessId:    businessId,
			TransferNo:    transferNo,
			TokenNo:       input.TokenNo,
			FromUnit:      input.FromUnit,
			FromFloor:     input.FromFloor,
			FromPocket:    input.FromPocket,
			ToUnit:        input.ToUnit,
			ToFloor:       input.ToFloor,
			ToPocket:      input.ToPocket,
			NumberOfSacks: input.NumberOfSacks,
			Status:        TransferOrderStatusOpen,
			Remarks:       input.Remarks,
			AuditFields:   auditStamp(ctx),
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		_, err = PostStockMovements(tx, ctx, businessId, input.TokenNo, transferNo,
			StockDocTypeTransfer, transferMovementPair(order))
		if err != nil {
			return err
		}

		order.Status = TransferOrderStatusInProgress
		return tx.Model(&TransferOrder{}).
			Where("business_id = ? AND transfer_no = ?", businessId, transferNo).
			Update("status", TransferOrderStatusInProgress).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

var transferTransitions = map[TransferOrderStatus][]TransferOrderStatus{
	TransferOrderStatusOpen:       {TransferOrderStatusInProgress, TransferOrderStatusCompleted},
	TransferOrderStatusInProgress: {TransferOrderStatusCompleted},
}

// UpdateTransferOrderStatus moves an order along Open -> In Progress ->
// Completed. Completion is a status change only, the stock already moved
// when the order was created.
func UpdateTransferOrderStatus(ctx context.Context, transferNo string, status TransferOrderStatus) (*TransferOrder, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var order *TransferOrder
	err = db.Transaction(func(tx *gorm.DB) error {
		order, err = utils.FetchByNumberTx[TransferOrder](tx, businessId, "transfer_no", transferNo)
		if err != nil {
			if err == utils.ErrorRecordNotFound {
				return utils.NewError(utils.ErrorKindNotFound, "transfer order %s not found", transferNo)
			}
			return err
		}
		allowed := false
		for _, next := range transferTransitions[order.Status] {
			if next == status {
				allowed = true
				break
			}
		}
		if !allowed {
			return utils.NewError(utils.ErrorKindInvalidState,
				"transfer order %s cannot move from %s to %s", transferNo, order.Status, status)
		}
		order.Status = status
		order.touch(ctx)
		return tx.Save(order).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// GetTransferOrder fetches a transfer order by number.
func GetTransferOrder(ctx context.Context, transferNo string) (*TransferOrder, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	order, err := utils.FetchByNumber[TransferOrder](ctx, businessId, "transfer_no", transferNo)
	if err != nil {
		if err == utils.ErrorRecordNotFound {
			return nil, utils.NewError(utils.ErrorKindNotFound, "transfer order %s not found", transferNo)
		}
		return nil, err
	}
	return order, nil
}

// ListTransferOrders returns the tenant's transfer orders, newest first.
func ListTransferOrders(ctx context.Context) ([]*TransferOrder, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var orders []*TransferOrder
	err = config.GetDB().Where("business_id = ?", businessId).
		Order("transfer_no desc").Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
