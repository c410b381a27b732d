package models

import (
	"context"

	"github.com/agridatabd/coldstore_backend/config"
	"github.com/agridatabd/coldstore_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Booking reserves storage space ahead of intake. Creating one upserts the
// customer profile by mobile and pins the resulting customer code on the
// booking. Immutable after creation except for status.
type Booking struct {
	BusinessId   string          `gorm:"primaryKey;size:64" json:"business_id"`
	BookingNo    string          `gorm:"primaryKey;size:50" json:"booking_no"`
	CustomerCode string          `gorm:"size:50" json:"customer_code"`
	Mobile       string          `gorm:"size:20;not null" json:"mobile"`
	CustomerName string          `gorm:"size:150;not null" json:"customer_name"`
	FatherName   string          `gorm:"size:100" json:"father_name"`
	DivisionName string          `gorm:"size:100" json:"division_name"`
	DistrictName string          `gorm:"size:100" json:"district_name"`
	UpazilaName  string          `gorm:"size:100" json:"upazila_name"`
	UnionName    string          `gorm:"size:100" json:"union_name"`
	Village      string          `gorm:"size:100" json:"village"`
	PostOffice   string          `gorm:"size:100" json:"post_office"`
	Advance      decimal.Decimal `gorm:"type:decimal(20,4)" json:"advance"`
	SackEstimate int             `json:"sack_estimate"`
	Status       BookingStatus   `gorm:"size:20;default:Pending" json:"status"`
	AuditFields
}

// NewBooking is the input for CreateBooking. BookingNo is optional; when
// empty the next B-series number is generated.
type NewBooking struct {
	BookingNo    string          `json:"booking_no"`
	Mobile       string          `json:"mobile" binding:"required"`
	CustomerName string          `json:"customer_name" binding:"required"`
	FatherName   string          `json:"father_name"`
	DivisionName string          `json:"division_name"`
	DistrictName string          `json:"district_name"`
	UpazilaName  string          `json:"upazila_name"`
	UnionName    string          `json:"union_name"`
	Village      string          `json:"village"`
	PostOffice   string          `json:"post_office"`
	Advance      decimal.Decimal `json:"advance"`
	SackEstimate int             `json:"sack_estimate"`
}

// BookingResult pairs the created booking with the customer profile it
// created or updated.
type BookingResult struct {
	Booking         *Booking         `json:"booking"`
	Customer        *CustomerProfile `json:"customer"`
	CustomerCreated bool             `json:"customer_created"`
}

// CreateBooking records a booking and upserts the customer by mobile in
// the same transaction.
func CreateBooking(ctx context.Context, input *NewBooking) (*BookingResult, error) {
	businessId, err := resolveTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidateMobile(input.Mobile); err != nil {
		return nil, err
	}
	if input.CustomerName == "" {
		return nil, utils.NewError(utils.ErrorKindInvalidArgument, "customer name is required")
	}
	if input.SackEstimate < 0 {
		return nil, utils.NewError(utils.ErrorKindInvalidArgument, "sack estimate cannot be negative")
	}

	// Both leases stay held until the transaction commits. Acquisition
	// order is fixed (document series before customer codes) everywhere.
	var bookingLease *SequenceLease
	if input.BookingNo == "" {
		bookingLease, err = AcquireSequence(ctx, businessId, BookingSeries)
		if err != nil {
			return nil, err
		}
		defer bookingLease.Release()
	}
	codes, err := AcquireSequence(ctx, businessId, CustomerCodeSeries)
	if err != nil {
		return nil, err
	}
	defer codes.Release()

	db := config.GetDB()
	var result BookingResult
	err = db.Transaction(func(tx *gorm.DB) error {
		bookingNo := input.BookingNo
		if bookingNo != "" {
			exists, err := utils.RowExists[Booking](tx, businessId, "booking_no = ?", bookingNo)
			if err != nil {
				return err
			}
			if exists {
				return utils.NewError(utils.ErrorKindDuplicateKey, "booking %s already exists", bookingNo)
			}
		} else {
			bookingNo, err = bookingLease.Next(tx)
			if err != nil {
				return err
			}
		}

		customer, created, err := upsertCustomerByMobile(tx, ctx, businessId, input.Mobile, CustomerInput{
			CustomerName: input.CustomerName,
			FatherName:   input.FatherName,
			DivisionName: input.DivisionName,
			DistrictName: input.DistrictName,
			UpazilaName:  input.UpazilaName,
			UnionName:    input.UnionName,
			Village:      input.Village,
			PostOffice:   input.PostOffice,
		}, codes)
		if err != nil {
			return err
		}

		booking := Booking{
			BusinessId:   businessId,
			BookingNo:    bookingNo,
			CustomerCode: customer.CustomerCode,
			Mobile:       input.Mobile,
			CustomerName: input.CustomerName,
			FatherName:   input.FatherName,
			DivisionName: input.DivisionName,
			DistrictName: input.DistrictName,
			UpazilaName:  input.UpazilaName,
			UnionName:    input.UnionName,
			Village:      input.Village,
			PostOffice:   input.PostOffice,
			Advance:      input.Advance,
			SackEstimate: input.SackEstimate,
			Status:       BookingStatusPending,
			AuditFields:  auditStamp(ctx),
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		result = BookingResult{Booking: &booking, Customer: customer, CustomerCreated: created}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetBooking fetches a booking by number.
func GetBooking(ctx context.Context, bookingNo string) (*Booking, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	booking, err := utils.FetchByNumber[Booking](ctx, businessId, "booking_no", bookingNo)
	if err != nil {
		if err == utils.ErrorRecordNotFound {
			return nil, utils.NewError(utils.ErrorKindNotFound, "booking %s not found", bookingNo)
		}
		return nil, err
	}
	return booking, nil
}

// ListBookings returns the tenant's bookings, newest first.
func ListBookings(ctx context.Context) ([]*Booking, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var bookings []*Booking
	err = config.GetDB().Where("business_id = ?", businessId).
		Order("booking_no desc").Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
