package utils

import (
	"context"
	"errors"

	"github.com/agridatabd/coldstore_backend/config"
	"gorm.io/gorm"
)

/* DB fetching */

// FetchByNumber fetches a model by its business-scoped document number column.
// (may return ErrorRecordNotFound)
func FetchByNumber[T any](ctx context.Context, businessId string, column string, value string, associations ...string) (*T, error) {
	db := config.GetDB()
	return fetchByNumber[T](db.WithContext(ctx), businessId, column, value, associations...)
}

// FetchByNumberTx is FetchByNumber on an open transaction, so callers see
// rows written earlier in the same atomic unit.
func FetchByNumberTx[T any](tx *gorm.DB, businessId string, column string, value string, associations ...string) (*T, error) {
	return fetchByNumber[T](tx, businessId, column, value, associations...)
}

func fetchByNumber[T any](dbCtx *gorm.DB, businessId string, column string, value string, associations ...string) (*T, error) {
	dbCtx = dbCtx.Where("business_id = ?", businessId).Where(column+" = ?", value)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// RowExists reports whether any row of T matches the given query within the
// tenant.
func RowExists[T any](tx *gorm.DB, businessId string, query string, args ...any) (bool, error) {
	var model T
	var count int64
	if err := tx.Model(&model).Where("business_id = ?", businessId).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
