package models

import (
	"log"

	"github.com/mmdatafocus/loans_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Loan{}, &LoanPayment{}, &LoanReminder{},
		&LapseAlert{}, &LapApplication{},
		&NotificationOutbox{},
	)
	if err != nil {
		log.Fatalf("failed to migrate tables: %v", err)
	}
}
