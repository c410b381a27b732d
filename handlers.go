package main

import (
	"errors"
	"net/http"

	"github.com/agridatabd/coldstore_backend/config"
	"github.com/agridatabd/coldstore_backend/models"
	"github.com/agridatabd/coldstore_backend/models/reports"
	"github.com/agridatabd/coldstore_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// statusFromKind maps the typed error kinds onto HTTP statuses. The kinds
// are the contract; statuses are presentation.
func statusFromKind(kind utils.ErrorKind) int {
	switch kind {
	case utils.ErrorKindNotFound:
		return http.StatusNotFound
	case utils.ErrorKindInvalidState, utils.ErrorKindDuplicateKey:
		return http.StatusConflict
	case utils.ErrorKindInvalidArgument, utils.ErrorKindQuantityExceeded, utils.ErrorKindInsufficientStock:
		return http.StatusBadRequest
	case utils.ErrorKindSequenceContention:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondBindingError reports per-field tags when binding failed on
// validation, and a generic 400 for malformed bodies.
func respondBindingError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string]string, len(validationErrors))
		for _, ve := range validationErrors {
			fields[ve.Field()] = ve.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}

func respondError(c *gin.Context, err error) {
	kind := utils.KindOf(err)
	if kind == utils.ErrorKindInternal {
		logger := config.GetLogger()
		config.LogError(logger, "handlers.go", c.FullPath(), "request failed", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "kind": kind})
		return
	}
	c.JSON(statusFromKind(kind), gin.H{"error": err.Error(), "kind": kind})
}

func createCompanyHandler(c *gin.Context) {
	var input models.NewCompanyProfile
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	company, err := models.CreateCompany(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, company)
}

func getCompanyHandler(c *gin.Context) {
	company, err := models.GetCompanyById(c.Request.Context(), c.Param("businessId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func generateTokensHandler(c *gin.Context) {
	var input struct {
		NumberOfTokens int `json:"number_of_tokens"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	tokens, err := models.GenerateTokens(c.Request.Context(), input.NumberOfTokens)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"count": len(tokens), "tokens": tokens})
}

func listTokensHandler(c *gin.Context) {
	status := models.TokenStatus(c.Query("status"))
	tokens, err := models.ListTokens(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func getTokenHandler(c *gin.Context) {
	token, err := models.GetToken(c.Request.Context(), c.Param("tokenNo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

func recordSackCountHandler(c *gin.Context) {
	var input struct {
		SackQty int `json:"sack_qty"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	token, err := models.RecordSackCount(c.Request.Context(), c.Param("tokenNo"), input.SackQty)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

func deleteTokenHandler(c *gin.Context) {
	if err := models.DeleteToken(c.Request.Context(), c.Param("tokenNo")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func createBookingHandler(c *gin.Context) {
	var input models.NewBooking
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	result, err := models.CreateBooking(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func listBookingsHandler(c *gin.Context) {
	bookings, err := models.ListBookings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func getBookingHandler(c *gin.Context) {
	booking, err := models.GetBooking(c.Request.Context(), c.Param("bookingNo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func searchCustomerHandler(c *gin.Context) {
	mobile := c.Query("mobile")
	customer, err := models.SearchCustomerByMobile(c.Request.Context(), mobile)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func getCustomerHandler(c *gin.Context) {
	customer, err := models.GetCustomerByCode(c.Request.Context(), c.Param("customerCode"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func createCertificateHandler(c *gin.Context) {
	var input models.NewCertificate
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	result, err := models.CreateCertificate(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func listCertificatesHandler(c *gin.Context) {
	status := models.CertificateStatus(c.Query("status"))
	certificates, err := models.ListCertificates(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, certificates)
}

func getCertificateHandler(c *gin.Context) {
	certificate, details, err := models.GetCertificate(c.Request.Context(), c.Param("tokenNo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"certificate": certificate, "details": details})
}

func addCertificateDetailsHandler(c *gin.Context) {
	var input struct {
		Details []models.NewCertificateDetail `json:"details"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	details, err := models.AddCertificateDetails(c.Request.Context(), c.Param("tokenNo"), input.Details)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"count": len(details), "details": details})
}

func postCertificateHandler(c *gin.Context) {
	certificate, err := models.PostCertificate(c.Request.Context(), c.Param("tokenNo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, certificate)
}

func createTransferOrderHandler(c *gin.Context) {
	var input models.NewTransferOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	order, err := models.CreateTransferOrder(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func listTransferOrdersHandler(c *gin.Context) {
	orders, err := models.ListTransferOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func getTransferOrderHandler(c *gin.Context) {
	order, err := models.GetTransferOrder(c.Request.Context(), c.Param("transferNo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func updateTransferOrderStatusHandler(c *gin.Context) {
	var input struct {
		Status models.TransferOrderStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	order, err := models.UpdateTransferOrderStatus(c.Request.Context(), c.Param("transferNo"), input.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func createChallanHandler(c *gin.Context) {
	var input models.NewDeliveryChallan
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	result, err := models.CreateDeliveryChallan(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func listChallansHandler(c *gin.Context) {
	challans, err := models.ListDeliveryChallans(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, challans)
}

func getChallanHandler(c *gin.Context) {
	result, err := models.GetDeliveryChallan(c.Request.Context(), c.Param("challanNo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func stockBalanceFilterFromQuery(c *gin.Context) models.StockBalanceFilter {
	return models.StockBalanceFilter{
		TokenNo: c.Query("token_no"),
		Mobile:  c.Query("mobile"),
		Pocket:  c.Query("pocket"),
	}
}

func currentStockHandler(c *gin.Context) {
	balances, err := reports.GetStockBalanceReport(c.Request.Context(), stockBalanceFilterFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balances)
}

func exportStockHandler(c *gin.Context) {
	if err := reports.ExportStockBalanceExcel(c.Request.Context(), c.Writer, stockBalanceFilterFromQuery(c)); err != nil {
		respondError(c, err)
	}
}

func tokenLedgerHandler(c *gin.Context) {
	rows, err := reports.GetTokenLedgerReport(c.Request.Context(), c.Param("tokenNo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
