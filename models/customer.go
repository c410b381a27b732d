package models

import (
	"context"
	"regexp"

	"github.com/agridatabd/coldstore_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var mobileRegexp = regexp.MustCompile(`^01[3-9][0-9]{8}$`)

// ValidateMobile checks the Bangladeshi mobile format the documents are
// keyed on.
func ValidateMobile(mobile string) error {
	if !mobileRegexp.MatchString(mobile) {
		return utils.NewError(utils.ErrorKindInvalidArgument, "enter a valid mobile number (e.g. 017XXXXXXXX)")
	}
	return nil
}

// CustomerProfile is unique per (business, mobile). Workflows upsert it:
// the profile accumulates the freshest non-empty fields seen on bookings
// and certificates, while issued documents keep their own snapshots.
type CustomerProfile struct {
	BusinessId    string          `gorm:"primaryKey;size:64" json:"business_id"`
	CustomerCode  string          `gorm:"primaryKey;size:50" json:"customer_code"`
	CustomerName  string          `gorm:"size:255;not null" json:"customer_name"`
	ContactPerson string          `gorm:"size:100" json:"contact_person"`
	Phone         string          `gorm:"size:20" json:"phone"`
	Mobile        string          `gorm:"size:20;uniqueIndex:idx_customer_mobile,composite:business_id" json:"mobile"`
	Email         string          `gorm:"size:100" json:"email"`
	FatherName    string          `gorm:"size:100" json:"father_name"`
	DivisionName  string          `gorm:"size:100" json:"division_name"`
	DistrictName  string          `gorm:"size:100" json:"district_name"`
	UpazilaName   string          `gorm:"size:100" json:"upazila_name"`
	UnionName     string          `gorm:"size:100" json:"union_name"`
	Village       string          `gorm:"size:100" json:"village"`
	PostOffice    string          `gorm:"size:100" json:"post_office"`
	PostalCode    string          `gorm:"size:20" json:"postal_code"`
	Address       string          `gorm:"size:255" json:"address"`
	CustomerType  CustomerType    `gorm:"size:50;default:Farmer" json:"customer_type"`
	GroupName     string          `gorm:"size:100" json:"group_name"`
	CreditLimit   decimal.Decimal `gorm:"type:decimal(15,2)" json:"credit_limit"`
	Active        bool            `gorm:"default:true" json:"active"`
	Remarks       string          `json:"remarks"`
	AuditFields
}

// CustomerInput carries the fields workflows may merge into a profile.
type CustomerInput struct {
	CustomerName string `json:"customer_name"`
	FatherName   string `json:"father_name"`
	DivisionName string `json:"division_name"`
	DistrictName string `json:"district_name"`
	UpazilaName  string `json:"upazila_name"`
	UnionName    string `json:"union_name"`
	Village      string `json:"village"`
	PostOffice   string `json:"post_office"`
}

// upsertCustomerByMobile merges non-empty supplied fields into the existing
// profile for (tenant, mobile), or creates a new profile with a freshly
// generated customer code. Runs on the caller's transaction; the caller
// holds the customer-code sequence lease across that transaction.
func upsertCustomerByMobile(tx *gorm.DB, ctx context.Context, businessId string, mobile string, input CustomerInput, codes *SequenceLease) (*CustomerProfile, bool, error) {
	var customer CustomerProfile
	err := tx.Where("business_id = ? AND mobile = ?", businessId, mobile).First(&customer).Error
	if err == nil {
		updates := map[string]interface{}{}
		merge := func(column string, current string, supplied string) {
			if supplied != "" && supplied != current {
				updates[column] = supplied
			}
		}
		merge("customer_name", customer.CustomerName, input.CustomerName)
		merge("father_name", customer.FatherName, input.FatherName)
		merge("division_name", customer.DivisionName, input.DivisionName)
		merge("district_name", customer.DistrictName, input.DistrictName)
		merge("upazila_name", customer.UpazilaName, input.UpazilaName)
		merge("union_name", customer.UnionName, input.UnionName)
		merge("village", customer.Village, input.Village)
		merge("post_office", customer.PostOffice, input.PostOffice)

		if len(updates) > 0 {
			if userId, ok := utils.GetUserIdFromContext(ctx); ok {
				updates["updated_by_id"] = userId
			}
			if err := tx.Model(&CustomerProfile{}).
				Where("business_id = ? AND customer_code = ?", businessId, customer.CustomerCode).
				Updates(updates).Error; err != nil {
				return nil, false, err
			}
			if err := tx.Where("business_id = ? AND customer_code = ?", businessId, customer.CustomerCode).
				First(&customer).Error; err != nil {
				return nil, false, err
			}
		}
		return &customer, false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, err
	}

	code, err := codes.Next(tx)
	if err != nil {
		return nil, false, err
	}
	customer = CustomerProfile{
		BusinessId:   businessId,
		CustomerCode: code,
		CustomerName: input.CustomerName,
		Mobile:       mobile,
		FatherName:   input.FatherName,
		DivisionName: input.DivisionName,
		DistrictName: input.DistrictName,
		UpazilaName:  input.UpazilaName,
		UnionName:    input.UnionName,
		Village:      input.Village,
		PostOffice:   input.PostOffice,
		CustomerType: CustomerTypeFarmer,
		Active:       true,
		AuditFields:  auditStamp(ctx),
	}
	if err := tx.Create(&customer).Error; err != nil {
		return nil, false, err
	}
	return &customer, true, nil
}

// SearchCustomerByMobile looks up a profile by mobile within the tenant.
func SearchCustomerByMobile(ctx context.Context, mobile string) (*CustomerProfile, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidateMobile(mobile); err != nil {
		return nil, err
	}
	customer, err := utils.FetchByNumber[CustomerProfile](ctx, businessId, "mobile", mobile)
	if err != nil {
		if err == utils.ErrorRecordNotFound {
			return nil, utils.NewError(utils.ErrorKindNotFound, "no customer found with mobile %s", mobile)
		}
		return nil, err
	}
	return customer, nil
}

// GetCustomerByCode fetches an active profile by customer code.
func GetCustomerByCode(ctx context.Context, customerCode string) (*CustomerProfile, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	customer, err := utils.FetchByNumber[CustomerProfile](ctx, businessId, "customer_code", customerCode)
	if err != nil {
		if err == utils.ErrorRecordNotFound {
			return nil, utils.NewError(utils.ErrorKindNotFound, "customer profile not found")
		}
		return nil, err
	}
	if !customer.Active {
		return nil, utils.NewError(utils.ErrorKindNotFound, "customer profile not found")
	}
	return customer, nil
}
