package models

import (
	"context"
	"errors"
	"time"

	"github.com/agridatabd/coldstore_backend/config"
	"github.com/agridatabd/coldstore_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompanyProfile is the tenant. Every other entity is scoped to its
// BusinessId.
type CompanyProfile struct {
	BusinessId     string `gorm:"primaryKey;size:64" json:"business_id"`
	BusinessName   string `gorm:"size:255;not null" json:"business_name"`
	ShortName      string `gorm:"size:100" json:"short_name"`
	Address        string `gorm:"size:255" json:"address"`
	Phone          string `gorm:"size:20" json:"phone"`
	Email          string `gorm:"size:100" json:"email"`
	RegistrationNo string `gorm:"size:100" json:"registration_no"`
	Active         bool   `gorm:"default:true" json:"active"`
	AuditFields
}

type NewCompanyProfile struct {
	BusinessName   string `json:"business_name" binding:"required"`
	ShortName      string `json:"short_name"`
	Address        string `json:"address"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	RegistrationNo string `json:"registration_no"`
}

func CreateCompany(ctx context.Context, input *NewCompanyProfile) (*CompanyProfile, error) {
	company := CompanyProfile{
		BusinessId:     uuid.NewString(),
		BusinessName:   input.BusinessName,
		ShortName:      input.ShortName,
		Address:        input.Address,
		Phone:          input.Phone,
		Email:          input.Email,
		RegistrationNo: input.RegistrationNo,
		Active:         true,
		AuditFields:    auditStamp(ctx),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

// GetCompanyById resolves a tenant, redis or db.
func GetCompanyById(ctx context.Context, businessId string) (*CompanyProfile, error) {
	var company CompanyProfile
	cacheKey := "CompanyProfile:" + businessId
	exists, err := config.GetRedisObject(cacheKey, &company)
	if err != nil {
		return nil, err
	}
	if exists {
		return &company, nil
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Where("business_id = ?", businessId).First(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewError(utils.ErrorKindNotFound, "business profile not found")
		}
		return nil, err
	}
	if err := config.SetRedisObject(cacheKey, &company, time.Hour); err != nil {
		return nil, err
	}
	return &company, nil
}
