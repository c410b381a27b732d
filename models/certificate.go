package models

import (
	"context"
	"time"

	"github.com/agridatabd/coldstore_backend/config"
	"github.com/agridatabd/coldstore_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const detailBatchCeiling = 1000

// Certificate is the storage contract issued against a counted token. It
// snapshots the customer fields at creation time so later profile edits do
// not rewrite history; the live profile is only referenced by code.
type Certificate struct {
	BusinessId         string            `gorm:"primaryKey;size:64" json:"business_id"`
	TokenNo            string            `gorm:"primaryKey;size:50" json:"token_no"`
	BookingNo          string            `gorm:"size:50" json:"booking_no"`
	CustomerCode       string            `gorm:"size:50" json:"customer_code"`
	CustomerName       string            `gorm:"size:255" json:"customer_name"`
	Mobile             string            `gorm:"size:20" json:"mobile"`
	FatherName         string            `gorm:"size:100" json:"father_name"`
	DivisionName       string            `gorm:"size:100" json:"division_name"`
	DistrictName       string            `gorm:"size:100" json:"district_name"`
	UpazilaName        string            `gorm:"size:100" json:"upazila_name"`
	UnionName          string            `gorm:"size:100" json:"union_name"`
	Village            string            `gorm:"size:100" json:"village"`
	PostOffice         string            `gorm:"size:100" json:"post_office"`
	PotatoType         string            `gorm:"size:100" json:"potato_type"`
	NumberOfSacks      int               `json:"number_of_sacks"`
	RentPerSack        decimal.Decimal   `gorm:"type:decimal(20,4)" json:"rent_per_sack"`
	TotalRent          decimal.Decimal   `gorm:"type:decimal(20,4)" json:"total_rent"`
	AdvanceRent        decimal.Decimal   `gorm:"type:decimal(20,4)" json:"advance_rent"`
	RemainingRent      decimal.Decimal   `gorm:"type:decimal(20,4)" json:"remaining_rent"`
	NumberOfEmptySacks int               `json:"number_of_empty_sacks"`
	PriceOfEmptySacks  decimal.Decimal   `gorm:"type:decimal(20,4)" json:"price_of_empty_sacks"`
	Transportation     decimal.Decimal   `gorm:"type:decimal(20,4)" json:"transportation"`
	GivenLoan          decimal.Decimal   `gorm:"type:decimal(20,4)" json:"given_loan"`
	TotalAmountTaka    decimal.Decimal   `gorm:"type:decimal(20,4)" json:"total_amount_taka"`
	Status             CertificateStatus `gorm:"size:20;default:Open" json:"status"`
	PostedAt           *time.Time        `json:"posted_at"`
	PostedById         int               `json:"posted_by_id"`
	AuditFields
}

// CertificateDetail places part of a certificate's sacks at one storage
// location. Keyed by the full location so a (token, item, unit, floor,
// pocket) combination appears at most once.
type CertificateDetail struct {
	BusinessId    string          `gorm:"primaryKey;size:64" json:"business_id"`
	TokenNo       string          `gorm:"primaryKey;size:50" json:"token_no"`
	Item          string          `gorm:"primaryKey;size:100" json:"item"`
	Unit          string          `gorm:"primaryKey;size:100" json:"unit"`
	Floor         string          `gorm:"primaryKey;size:100" json:"floor"`
	Pocket        string          `gorm:"primaryKey;size:100" json:"pocket"`
	PotatoType    string          `gorm:"size:100" json:"potato_type"`
	NumberOfSacks int             `json:"number_of_sacks"`
	RentPerSack   decimal.Decimal `gorm:"type:decimal(20,4)" json:"rent_per_sack"`
	TotalRent     decimal.Decimal `gorm:"type:decimal(20,4)" json:"total_rent"`
	AuditFields
}

// NewCertificate is the input for CreateCertificate. Customer fields are
// merged into the profile matched by mobile and then snapshotted.
type NewCertificate struct {
	TokenNo            string          `json:"token_no" binding:"required"`
	BookingNo          string          `json:"booking_no"`
	Mobile             string          `json:"mobile" binding:"required"`
	CustomerName       string          `json:"customer_name"`
	FatherName         string          `json:"father_name"`
	DivisionName       string          `json:"division_name"`
	DistrictName       string          `json:"district_name"`
	UpazilaName        string          `json:"upazila_name"`
	UnionName          string          `json:"union_name"`
	Village            string          `json:"village"`
	PostOffice         string          `json:"post_office"`
	PotatoType         string          `json:"potato_type"`
	NumberOfSacks      int             `json:"number_of_sacks"`
	RentPerSack        decimal.Decimal `json:"rent_per_sack"`
	TotalRent          decimal.Decimal `json:"total_rent"`
	AdvanceRent        decimal.Decimal `json:"advance_rent"`
	RemainingRent      decimal.Decimal `json:"remaining_rent"`
	NumberOfEmptySacks int             `json:"number_of_empty_sacks"`
	PriceOfEmptySacks  decimal.Decimal `json:"price_of_empty_sacks"`
	Transportation     decimal.Decimal `json:"transportation"`
	GivenLoan          decimal.Decimal `json:"given_loan"`
	TotalAmountTaka    decimal.Decimal `json:"total_amount_taka"`
}

// CertificateResult pairs the created certificate with the customer profile
// it created or updated.
type CertificateResult struct {
	Certificate     *Certificate     `json:"certificate"`
	Customer        *CustomerProfile `json:"customer"`
	CustomerCreated bool             `json:"customer_created"`
}

// CreateCertificate converts a Counted token into a certificate. The
// customer upsert, certificate insert and token completion commit together
// or not at all.
func CreateCertificate(ctx context.Context, input *NewCertificate) (*CertificateResult, error) {
	businessId, err := resolveTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidateMobile(input.Mobile); err != nil {
		return nil, err
	}

	// Held across the commit in case the upsert has to mint a customer code.
	codes, err := AcquireSequence(ctx, businessId, CustomerCodeSeries)
	if err != nil {
		return nil, err
	}
	defer codes.Release()

	db := config.GetDB()
	var result CertificateResult
	err = db.Transaction(func(tx *gorm.DB) error {
		token, err := utils.FetchByNumberTx[StorageToken](tx, businessId, "token_no", input.TokenNo)
		if err != nil {
			if err == utils.ErrorRecordNotFound {
				return utils.NewError(utils.ErrorKindNotFound, "token %s not found", input.TokenNo)
			}
			return err
		}
		if token.Status != TokenStatusCounted {
			return utils.NewError(utils.ErrorKindInvalidState,
				"token %s is %s, not available for a certificate", input.TokenNo, token.Status)
		}

		exists, err := utils.RowExists[Certificate](tx, businessId, "token_no = ?", input.TokenNo)
		if err != nil {
			return err
		}
		if exists {
			return utils.NewError(utils.ErrorKindDuplicateKey,
				"certificate for token %s already exists", input.TokenNo)
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

		certificate := Certificate{
			BusinessId:         businessId,
			TokenNo:            input.TokenNo,
			BookingNo:          input.BookingNo,
			CustomerCode:       customer.CustomerCode,
			CustomerName:       customer.CustomerName,
			Mobile:             customer.Mobile,
			FatherName:         customer.FatherName,
			DivisionName:       customer.DivisionName,
			DistrictName:       customer.DistrictName,
			UpazilaName:        customer.UpazilaName,
			UnionName:          customer.UnionName,
			Village:            customer.Village,
			PostOffice:         customer.PostOffice,
			PotatoType:         input.PotatoType,
			NumberOfSacks:      input.NumberOfSacks,
			RentPerSack:        input.RentPerSack,
			TotalRent:          input.TotalRent,
			AdvanceRent:        input.AdvanceRent,
			RemainingRent:      input.RemainingRent,
			NumberOfEmptySacks: input.NumberOfEmptySacks,
			PriceOfEmptySacks:  input.PriceOfEmptySacks,
			Transportation:     input.Transportation,
			GivenLoan:          input.GivenLoan,
			TotalAmountTaka:    input.TotalAmountTaka,
			Status:             CertificateStatusOpen,
			AuditFields:        auditStamp(ctx),
		}
		if err := tx.Create(&certificate).Error; err != nil {
			return err
		}

		token.Status = TokenStatusCompleted
		token.touch(ctx)
		if err := tx.Save(token).Error; err != nil {
			return err
		}

		result = CertificateResult{Certificate: &certificate, Customer: customer, CustomerCreated: created}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// NewCertificateDetail is one batch line for AddCertificateDetails.
type NewCertificateDetail struct {
	Item          string          `json:"item"`
	Unit          string          `json:"unit"`
	Floor         string          `json:"floor"`
	Pocket        string          `json:"pocket"`
	PotatoType    string          `json:"potato_type"`
	NumberOfSacks int             `json:"number_of_sacks" binding:"required"`
	RentPerSack   decimal.Decimal `json:"rent_per_sack"`
}

type detailKey struct {
	Item   string
	Unit   string
	Floor  string
	Pocket string
}

// validateDetailBatch runs the write-free checks on a detail batch: size
// bounds, positive quantities and duplicate composite keys within the batch.
func validateDetailBatch(lines []NewCertificateDetail) error {
	if len(lines) == 0 {
		return utils.NewError(utils.ErrorKindInvalidArgument, "at least one detail line is required")
	}
	if len(lines) > detailBatchCeiling {
		return utils.NewError(utils.ErrorKindInvalidArgument,
			"cannot create more than %d detail lines at once", detailBatchCeiling)
	}
	seen := make(map[detailKey]int, len(lines))
	for i, line := range lines {
		if line.NumberOfSacks <= 0 {
			return utils.NewError(utils.ErrorKindInvalidArgument,
				"detail line %d: number of sacks must be greater than 0", i)
		}
		key := detailKey{Item: line.Item, Unit: line.Unit, Floor: line.Floor, Pocket: line.Pocket}
		if prev, dup := seen[key]; dup {
			return utils.NewError(utils.ErrorKindDuplicateKey,
				"detail lines %d and %d share the same item/unit/floor/pocket", prev, i)
		}
		seen[key] = i
	}
	return nil
}

// checkDetailQuantityCap enforces the certificate's declared sack total:
// existing plus new line quantities may reach the total but never exceed it.
func checkDetailQuantityCap(certificate *Certificate, existingQty int, lines []NewCertificateDetail) error {
	if certificate.NumberOfSacks <= 0 {
		return utils.NewError(utils.ErrorKindQuantityExceeded,
			"certificate %s has no valid sack total (%d)", certificate.TokenNo, certificate.NumberOfSacks)
	}
	newQty := 0
	for _, line := range lines {
		newQty += line.NumberOfSacks
	}
	if existingQty+newQty > certificate.NumberOfSacks {
		return utils.NewError(utils.ErrorKindQuantityExceeded,
			"detail quantity %d (existing %d + new %d) exceeds certificate total %d",
			existingQty+newQty, existingQty, newQty, certificate.NumberOfSacks)
	}
	return nil
}

// AddCertificateDetails stores a batch of location lines for a certificate
// and posts one receipt credit per line into the stock ledger. The batch is
// all-or-nothing: validation happens before any write, and the detail rows
// and ledger rows commit in one transaction. Lines without an item code
// still store a detail row but post no ledger row.
func AddCertificateDetails(ctx context.Context, tokenNo string, lines []NewCertificateDetail) ([]*CertificateDetail, error) {
	businessId, err := resolveTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateDetailBatch(lines); err != nil {
		return nil, err
	}

	logger := config.GetLogger()
	db := config.GetDB()
	var created []*CertificateDetail
	err = db.Transaction(func(tx *gorm.DB) error {
		certificate, err := utils.FetchByNumberTx[Certificate](tx, businessId, "token_no", tokenNo)
		if err != nil {
			if err == utils.ErrorRecordNotFound {
				return utils.NewError(utils.ErrorKindNotFound, "certificate %s not found", tokenNo)
			}
			return err
		}
		if certificate.Status == CertificateStatusPosted || certificate.Status == CertificateStatusCompleted {
			return utils.NewError(utils.ErrorKindInvalidState,
				"certificate %s is %s and no longer accepts detail lines", tokenNo, certificate.Status)
		}

		for i, line := range lines {
			exists, err := utils.RowExists[CertificateDetail](tx, businessId,
				"token_no = ? AND item = ? AND unit = ? AND floor = ? AND pocket = ?",
				tokenNo, line.Item, line.Unit, line.Floor, line.Pocket)
			if err != nil {
				return err
			}
			if exists {
				return utils.NewError(utils.ErrorKindDuplicateKey,
					"detail line %d already exists for certificate %s", i, tokenNo)
			}
		}

		var existingQty int
		err = tx.Model(&CertificateDetail{}).
			Where("business_id = ? AND token_no = ?", businessId, tokenNo).
			Select("COALESCE(SUM(number_of_sacks), 0)").
			Scan(&existingQty).Error
		if err != nil {
			return err
		}
		if err := checkDetailQuantityCap(certificate, existingQty, lines); err != nil {
			return err
		}

		stamp := auditStamp(ctx)
		created = make([]*CertificateDetail, 0, len(lines))
		movements := make([]StockMovementLine, 0, len(lines))
		for _, line := range lines {
			detail := &CertificateDetail{
				BusinessId:    businessId,
				TokenNo:       tokenNo,
				Item:          line.Item,
				Unit:          line.Unit,
				Floor:         line.Floor,
				Pocket:        line.Pocket,
				PotatoType:    line.PotatoType,
				NumberOfSacks: line.NumberOfSacks,
				RentPerSack:   line.RentPerSack,
				AuditFields:   stamp,
			}
			if !line.RentPerSack.IsZero() {
				detail.TotalRent = decimal.NewFromInt(int64(line.NumberOfSacks)).Mul(line.RentPerSack)
			}
			created = append(created, detail)

			if line.Item == "" {
				logger.WithFields(map[string]interface{}{
					"business_id": businessId,
					"token_no":    tokenNo,
					"unit":        line.Unit,
					"floor":       line.Floor,
					"pocket":      line.Pocket,
				}).Warn("certificate detail has no item code, skipping stock posting")
				continue
			}
			movements = append(movements, StockMovementLine{
				Item:   line.Item,
				Unit:   line.Unit,
				Floor:  line.Floor,
				Pocket: line.Pocket,
				Sign:   1,
				Action: StockActionReceipt,
				Qty:    decimal.NewFromInt(int64(line.NumberOfSacks)),
				Value:  detail.TotalRent,
			})
		}

		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		if len(movements) > 0 {
			if _, err := PostStockMovements(tx, ctx, businessId, tokenNo, tokenNo, StockDocTypeReceipt, movements); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// PostCertificate finalizes a certificate after its detail lines are in.
// Detail entry already posted the receipt ledger rows, so this is a status
// transition only: Open/Ready/Loaded to Posted, refused when no details
// exist or the certificate was posted before.
func PostCertificate(ctx context.Context, tokenNo string) (*Certificate, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var certificate *Certificate
	err = db.Transaction(func(tx *gorm.DB) error {
		certificate, err = utils.FetchByNumberTx[Certificate](tx, businessId, "token_no", tokenNo)
		if err != nil {
			if err == utils.ErrorRecordNotFound {
				return utils.NewError(utils.ErrorKindNotFound, "certificate %s not found", tokenNo)
			}
			return err
		}
		switch certificate.Status {
		case CertificateStatusOpen, CertificateStatusReady, CertificateStatusLoaded:
		case CertificateStatusPosted:
			return utils.NewError(utils.ErrorKindInvalidState,
				"certificate %s has already been posted to stock", tokenNo)
		default:
			return utils.NewError(utils.ErrorKindInvalidState,
				"certificate status %q cannot be posted to stock", certificate.Status)
		}

		hasDetails, err := utils.RowExists[CertificateDetail](tx, businessId, "token_no = ?", tokenNo)
		if err != nil {
			return err
		}
		if !hasDetails {
			return utils.NewError(utils.ErrorKindInvalidState,
				"certificate %s has no detail lines to post", tokenNo)
		}

		now := time.Now()
		certificate.Status = CertificateStatusPosted
		certificate.PostedAt = &now
		if userId, ok := utils.GetUserIdFromContext(ctx); ok {
			certificate.PostedById = userId
		}
		certificate.touch(ctx)
		return tx.Save(certificate).Error
	})
	if err != nil {
		return nil, err
	}
	return certificate, nil
}

// GetCertificate fetches a certificate with its detail lines.
func GetCertificate(ctx context.Context, tokenNo string) (*Certificate, []*CertificateDetail, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	certificate, err := utils.FetchByNumber[Certificate](ctx, businessId, "token_no", tokenNo)
	if err != nil {
		if err == utils.ErrorRecordNotFound {
			return nil, nil, utils.NewError(utils.ErrorKindNotFound, "certificate %s not found", tokenNo)
		}
		return nil, nil, err
	}
	var details []*CertificateDetail
	err = config.GetDB().
		Where("business_id = ? AND token_no = ?", businessId, tokenNo).
		Order("unit, floor, pocket").Find(&details).Error
	if err != nil {
		return nil, nil, err
	}
	return certificate, details, nil
}

// ListCertificates returns the tenant's certificates, optionally filtered
// by status, newest first.
func ListCertificates(ctx context.Context, status CertificateStatus) ([]*Certificate, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	query := config.GetDB().Where("business_id = ?", businessId)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var certificates []*Certificate
	if err := query.Order("token_no desc").Find(&certificates).Error; err != nil {
		return nil, err
	}
	return certificates, nil
}
