package domain

import (
	"time"

	"github.com/google/uuid"
)

// BatchStatus tracks a batch through the worker's state machine.
type BatchStatus string

const (
	BatchStatusUploaded      BatchStatus = "uploaded"
	BatchStatusPreprocessing BatchStatus = "preprocessing"
	BatchStatusPending       BatchStatus = "pending"
	BatchStatusProcessing    BatchStatus = "processing"
	BatchStatusComplete      BatchStatus = "complete"
	BatchStatusDiscarded     BatchStatus = "discarded"
)

func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusUploaded, BatchStatusPreprocessing, BatchStatusPending,
		BatchStatusProcessing, BatchStatusComplete, BatchStatusDiscarded:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusComplete PaymentStatus = "complete"
	PaymentStatusFailed   PaymentStatus = "failed"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusComplete, PaymentStatusFailed:
		return true
	}
	return false
}

type EntityKind string

const (
	EntityKindIndividual  EntityKind = "individual"
	EntityKindCorporation EntityKind = "corporation"
)

type AccountKind string

const (
	AccountKindACH       AccountKind = "ach"
	AccountKindLiability AccountKind = "liability"
)

// Batch is one uploaded payroll file. PaymentsCount and PaymentsTotal are
// computed once, when preprocessing finishes, from the payments that
// provisioned successfully. Amounts are minor units (cents).
type Batch struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	Status        BatchStatus `json:"status"`
	Approved      bool        `json:"approved"`
	PaymentsCount int         `json:"payments_count"`
	PaymentsTotal int64       `json:"payments_total"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type Address struct {
	Line1 string `json:"line1"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
}

// Employee is the payee individual as it appears in the source file.
type Employee struct {
	DunkinID  string `json:"dunkin_id"`
	Branch    string `json:"branch"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DOB       string `json:"dob"` // raw, normalized during provisioning
	Phone     string `json:"phone"`
}

// Payor is the franchise corporation funding the payment.
type Payor struct {
	DunkinID      string  `json:"dunkin_id"`
	ABARouting    string  `json:"aba_routing"`
	AccountNumber string  `json:"account_number"`
	Name          string  `json:"name"`
	DBA           string  `json:"dba"`
	EIN           string  `json:"ein"`
	Address       Address `json:"address"`
}

// Payee identifies the loan the employee is paying down.
type Payee struct {
	PlaidID           string `json:"plaid_id"`
	LoanAccountNumber string `json:"loan_account_number"`
}

// Payment is one instruction to move funds from a payor account to a payee
// loan account. The Method* fields are filled in as provisioning and transfer
// resolve them.
type Payment struct {
	ID       uuid.UUID     `json:"id"`
	BatchID  uuid.UUID     `json:"batch_id"`
	Employee Employee      `json:"employee"`
	Payor    Payor         `json:"payor"`
	Payee    Payee         `json:"payee"`
	Amount   int64         `json:"amount"` // cents
	Status   PaymentStatus `json:"status"`
	Error    string        `json:"error,omitempty"`

	PayorEntityID   string `json:"payor_entity_id,omitempty"`
	PayorAccountID  string `json:"payor_account_id,omitempty"`
	PayeeEntityID   string `json:"payee_entity_id,omitempty"`
	PayeeAccountID  string `json:"payee_account_id,omitempty"`
	MethodPaymentID string `json:"method_payment_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Entity is a provider-side identity record, deduplicated by DunkinID.
// Exactly one Entity ever exists per DunkinID; MethodEntityID is attached
// once and never changes.
type Entity struct {
	ID       uuid.UUID  `json:"id"`
	DunkinID string     `json:"dunkin_id"`
	Branch   string     `json:"branch,omitempty"`
	Kind     EntityKind `json:"kind"`

	// individual profile
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	DOB       string `json:"dob,omitempty"` // normalized YYYY-MM-DD
	Phone     string `json:"phone,omitempty"`

	// corporation profile
	CorpName string  `json:"corp_name,omitempty"`
	DBA      string  `json:"dba,omitempty"`
	EIN      string  `json:"ein,omitempty"`
	Address  Address `json:"address"`

	MethodEntityID string `json:"method_entity_id"`
}

// Account is a provider-side financial account owned by an Entity. ACH
// accounts are deduplicated by (holder, routing, number); liability accounts
// by (holder, account number).
type Account struct {
	ID       uuid.UUID   `json:"id"`
	HolderID uuid.UUID   `json:"holder_id"`
	Kind     AccountKind `json:"kind"`

	// ach
	Routing string `json:"routing,omitempty"`
	Number  string `json:"number,omitempty"`
	Subtype string `json:"subtype,omitempty"` // checking / savings

	// liability
	MerchantID    string `json:"merchant_id,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`

	MethodAccountID string `json:"method_account_id"`
}
