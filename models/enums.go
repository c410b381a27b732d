package models

type TokenStatus string

const (
	TokenStatusPending   TokenStatus = "Pending"
	TokenStatusCounted   TokenStatus = "Counted"
	TokenStatusCompleted TokenStatus = "Completed"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "Pending"
	BookingStatusCompleted BookingStatus = "Completed"
)

type CertificateStatus string

const (
	CertificateStatusOpen      CertificateStatus = "Open"
	CertificateStatusReady     CertificateStatus = "Ready"
	CertificateStatusLoaded    CertificateStatus = "Loaded"
	CertificateStatusPosted    CertificateStatus = "Posted"
	CertificateStatusCompleted CertificateStatus = "Completed"
)

type TransferOrderStatus string

const (
	TransferOrderStatusOpen       TransferOrderStatus = "Open"
	TransferOrderStatusInProgress TransferOrderStatus = "In Progress"
	TransferOrderStatusCompleted  TransferOrderStatus = "Completed"
)

type ChallanStatus string

const (
	ChallanStatusOpen   ChallanStatus = "Open"
	ChallanStatusIssued ChallanStatus = "Issued"
)

// StockDocType identifies the document family a ledger row came from.
type StockDocType string

const (
	StockDocTypeReceipt  StockDocType = "ADRE"
	StockDocTypeTransfer StockDocType = "TO"
	StockDocTypeChallan  StockDocType = "CHL"
)

const (
	StockActionReceipt     = "Receipt"
	StockActionTransferOut = "Transfer Out"
	StockActionTransferIn  = "Transfer In"
	StockActionDeliveryOut = "Delivery Out"
)

type CustomerType string

const (
	CustomerTypeFarmer    CustomerType = "Farmer"
	CustomerTypeRetailer  CustomerType = "Retailer"
	CustomerTypeDealer    CustomerType = "Dealer"
	CustomerTypeCorporate CustomerType = "Corporate"
	CustomerTypeTrader    CustomerType = "Trader"
	CustomerTypeAgent     CustomerType = "Agent"
)
