package models

import (
	"context"

	"github.com/agridatabd/coldstore_backend/config"
	"github.com/agridatabd/coldstore_backend/utils"
	"gorm.io/gorm"
)

// StorageToken is the gate pass handed to a grower at intake. It starts
// Pending, turns Counted once the gate records a sack count, and Completed
// when a certificate consumes it. Completed tokens are owned by their
// certificate and can no longer be edited here.
type StorageToken struct {
	BusinessId string      `gorm:"primaryKey;size:64" json:"business_id"`
	TokenNo    string      `gorm:"primaryKey;size:50" json:"token_no"`
	SackQty    int         `json:"sack_qty"`
	Status     TokenStatus `gorm:"size:20;default:Pending" json:"status"`
	Remarks    string      `json:"remarks"`
	AuditFields
}

// GenerateTokens issues count new Pending tokens numbered under a single
// sequence lock so a burst of gate clerks cannot interleave serials.
func GenerateTokens(ctx context.Context, count int) ([]*StorageToken, error) {
	businessId, err := resolveTenant(ctx)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, utils.NewError(utils.ErrorKindInvalidArgument, "token count must be positive, got %d", count)
	}

	lease, err := AcquireSequence(ctx, businessId, TokenSeries)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	db := config.GetDB()
	var tokens []*StorageToken
	err = db.Transaction(func(tx *gorm.DB) error {
		numbers, err := lease.NextN(tx, count)
		if err != nil {
			return err
		}
		stamp := auditStamp(ctx)
		tokens = make([]*StorageToken, 0, count)
		for _, number := range numbers {
			tokens = append(tokens, &StorageToken{
				BusinessId:  businessId,
				TokenNo:     number,
				Status:      TokenStatusPending,
				AuditFields: stamp,
			})
		}
		return tx.Create(&tokens).Error
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// RecordSackCount sets the counted sack quantity on a token. Allowed from
// Pending or Counted (recounts overwrite), never from Completed.
func RecordSackCount(ctx context.Context, tokenNo string, sackQty int) (*StorageToken, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if sackQty <= 0 {
		return nil, utils.NewError(utils.ErrorKindInvalidArgument, "sack quantity must be positive, got %d", sackQty)
	}

	db := config.GetDB()
	var token *StorageToken
	err = db.Transaction(func(tx *gorm.DB) error {
		token, err = utils.FetchByNumberTx[StorageToken](tx, businessId, "token_no", tokenNo)
		if err != nil {
			if err == utils.ErrorRecordNotFound {
				return utils.NewError(utils.ErrorKindNotFound, "token %s not found", tokenNo)
			}
			return err
		}
		if token.Status == TokenStatusCompleted {
			return utils.NewError(utils.ErrorKindInvalidState, "token %s is already completed", tokenNo)
		}
		token.SackQty = sackQty
		token.Status = TokenStatusCounted
		token.touch(ctx)
		return tx.Save(token).Error
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// GetToken fetches a single token by number.
func GetToken(ctx context.Context, tokenNo string) (*StorageToken, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	token, err := utils.FetchByNumber[StorageToken](ctx, businessId, "token_no", tokenNo)
	if err != nil {
		if err == utils.ErrorRecordNotFound {
			return nil, utils.NewError(utils.ErrorKindNotFound, "token %s not found", tokenNo)
		}
		return nil, err
	}
	return token, nil
}

// ListTokens returns the tenant's tokens, optionally filtered by status,
// newest first.
func ListTokens(ctx context.Context, status TokenStatus) ([]*StorageToken, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	query := db.Where("business_id = ?", businessId)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var tokens []*StorageToken
	if err := query.Order("token_no desc").Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

// DeleteToken removes a token that never entered the flow. Only Pending
// tokens can go; a Counted or Completed token is already part of the record.
func DeleteToken(ctx context.Context, tokenNo string) error {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return err
	}
	db := config.GetDB()
	return db.Transaction(func(tx *gorm.DB) error {
		token, err := utils.FetchByNumberTx[StorageToken](tx, businessId, "token_no", tokenNo)
		if err != nil {
			if err == utils.ErrorRecordNotFound {
				return utils.NewError(utils.ErrorKindNotFound, "token %s not found", tokenNo)
			}
			return err
		}
		if token.Status != TokenStatusPending {
			return utils.NewError(utils.ErrorKindInvalidState, "token %s is %s and cannot be deleted", tokenNo, token.Status)
		}
		return tx.Where("business_id = ? AND token_no = ?", businessId, tokenNo).
			Delete(&StorageToken{}).Error
	})
}
