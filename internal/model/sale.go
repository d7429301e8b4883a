package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates how a Sale was paid.
type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentPix        PaymentMethod = "PIX"
	PaymentCash       PaymentMethod = "CASH"
)

// Sale records the successful confirmation of a single Reservation.
// It exists iff the reservation is CONFIRMED; amount is the Session's
// price at confirmation time, not the current session price.
//
// Fields:
//
//	ID            – primary key, a generated UUID.
//	ReservationID – the reservation this sale finalizes (unique).
//	Amount        – amount charged, copied from Session.Price at confirm time.
//	PaymentMethod – how the sale was paid.
//	CreatedAt     – creation timestamp.
type Sale struct {
	ID            string          // sales.id
	ReservationID string          // sales.reservation_id, unique
	Amount        decimal.Decimal // sales.amount
	PaymentMethod PaymentMethod   // sales.payment_method
	CreatedAt     time.Time       // sales.created_at
}
