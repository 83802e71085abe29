// Package domain defines the wallet ledger's models and invariants.
package domain

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Type classifies a ledger transaction.
type Type string

const (
	TypeCredit      Type = "credit"
	TypeDebit       Type = "debit"
	TypeAdminGrant  Type = "admin_grant"
	TypeAdminDeduct Type = "admin_deduct"
	TypeGameWin     Type = "game_win"
	TypeGameLoss    Type = "game_loss"
	TypeBonus       Type = "bonus"
)

// IsCredit reports whether the type increases the balance.
func (t Type) IsCredit() bool {
	switch t {
	case TypeCredit, TypeAdminGrant, TypeGameWin, TypeBonus:
		return true
	}
	return false
}

// IsDebit reports whether the type decreases the balance.
func (t Type) IsDebit() bool {
	switch t {
	case TypeDebit, TypeAdminDeduct, TypeGameLoss:
		return true
	}
	return false
}

// Valid reports whether the type is a known ledger type.
func (t Type) Valid() bool {
	return t.IsCredit() || t.IsDebit()
}

// Transaction is one append-only ledger row. AmountCents is always positive;
// the type carries the direction. BalanceAfterCents of a user's latest row
// always equals that user's current balance.
type Transaction struct {
	TransactionID     string            `json:"transaction_id" gorm:"primaryKey;column:transaction_id"`
	UserID            int64             `json:"user_id" gorm:"column:user_id;index;not null"`
	Type              Type              `json:"type" gorm:"column:type;not null"`
	AmountCents       int64             `json:"amount_cents" gorm:"column:amount_cents;not null"`
	BalanceAfterCents int64             `json:"balance_after_cents" gorm:"column:balance_after_cents;not null"`
	Description       string            `json:"description" gorm:"column:description"`
	Metadata          datatypes.JSONMap `json:"metadata,omitempty" gorm:"column:metadata"`
	CreatedAt         time.Time         `json:"created_at" gorm:"column:created_at;autoCreateTime;index"`
}

// TableName sets the table name for gorm.
func (Transaction) TableName() string { return "transactions" }

var (
	node *snowflake.Node
	once sync.Once
)

func initSnowflake() {
	var err error
	node, err = snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
}

// NewTransactionID generates a unique, time-sortable transaction ID.
func NewTransactionID() string {
	once.Do(initSnowflake)
	return node.Generate().String()
}

// NewTransaction builds an unapplied transaction row.
func NewTransaction(userID int64, txType Type, amountCents int64, description string, metadata map[string]interface{}) *Transaction {
	return &Transaction{
		TransactionID: NewTransactionID(),
		UserID:        userID,
		Type:          txType,
		AmountCents:   amountCents,
		Description:   description,
		Metadata:      metadata,
	}
}
