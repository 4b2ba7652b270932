package domain

import (
	"strings"
	"time"
)

type PaymentMethod string

const (
	MethodPix    PaymentMethod = "pix"
	MethodBoleto PaymentMethod = "boleto"
	MethodCartao PaymentMethod = "cartao"
)

type TransactionStatus string

const (
	TxPending    TransactionStatus = "pending"
	TxPaid       TransactionStatus = "paid"
	TxRefunded   TransactionStatus = "refunded"
	TxChargeback TransactionStatus = "chargeback"
)

// Transaction 金额单位：分（centavos）
type Transaction struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`
	OrderID   string            `gorm:"index;size:64;not null" json:"orderId"`
	Amount    int64             `gorm:"not null" json:"amount"`
	Method    PaymentMethod     `gorm:"size:16;not null" json:"method"`
	Status    TransactionStatus `gorm:"index;size:16;not null" json:"status"`
	CreatedAt time.Time         `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func (Transaction) TableName() string { return "transactions" }

type TransactionInput struct {
	ID      string            `json:"id" validate:"max=36"`
	OrderID string            `json:"orderId" validate:"required,max=64"`
	Amount  int64             `json:"amount" validate:"gt=0"`
	Method  PaymentMethod     `json:"method" validate:"required,oneof=pix boleto cartao"`
	Status  TransactionStatus `json:"status" validate:"required,oneof=pending paid refunded chargeback"`
}

// NewTransaction status 默认 pending
func NewTransaction(in TransactionInput) (*Transaction, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.OrderID = strings.TrimSpace(in.OrderID)
	if in.Status == "" {
		in.Status = TxPending
	}
	if err := check(in); err != nil {
		return nil, err
	}
	return &Transaction{
		ID:      in.ID,
		OrderID: in.OrderID,
		Amount:  in.Amount,
		Method:  in.Method,
		Status:  in.Status,
	}, nil
}

// Refund 单向：已经是 refunded 返回 false，不会再退回其他状态
func (t *Transaction) Refund() bool {
	if t.Status == TxRefunded {
		return false
	}
	t.Status = TxRefunded
	return true
}

// TransactionFilter 空字段表示不过滤
type TransactionFilter struct {
	Status TransactionStatus `json:"status" validate:"omitempty,oneof=pending paid refunded chargeback"`
	Method PaymentMethod     `json:"method" validate:"omitempty,oneof=pix boleto cartao"`
}

func (f TransactionFilter) Validate() error { return check(f) }
