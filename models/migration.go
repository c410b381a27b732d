package models

import (
	"log"

	"github.com/agridatabd/coldstore_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&CompanyProfile{}, &CustomerProfile{},
		&StorageToken{}, &Booking{},
		&Certificate{}, &CertificateDetail{},
		&StockMovement{},
		&TransferOrder{},
		&DeliveryChallan{}, &DeliveryChallanDetail{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
