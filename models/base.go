package models

import (
	"context"
	"time"

	"github.com/agridatabd/coldstore_backend/utils"
)

// AuditFields is embedded in every mutable entity. The caller identity comes
// from the request context; the core never resolves identity itself.
type AuditFields struct {
	CreatedById int       `gorm:"index" json:"created_by_id"`
	UpdatedById int       `json:"updated_by_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func auditStamp(ctx context.Context) AuditFields {
	userId, _ := utils.GetUserIdFromContext(ctx)
	return AuditFields{
		CreatedById: userId,
		UpdatedById: userId,
	}
}

func (a *AuditFields) touch(ctx context.Context) {
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		a.UpdatedById = userId
	}
}

func businessIdFromContext(ctx context.Context) (string, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return "", utils.NewError(utils.ErrorKindInvalidArgument, "business id is required")
	}
	return businessId, nil
}

// resolveTenant confirms the tenant exists before a workflow writes
// documents under it. NotFound when the business id resolves to nothing.
func resolveTenant(ctx context.Context) (string, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return "", err
	}
	if _, err := GetCompanyById(ctx, businessId); err != nil {
		return "", err
	}
	return businessId, nil
}
