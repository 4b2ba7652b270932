package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	tests := []struct {
		name    string
		in      UserInput
		wantErr bool
		check   func(t *testing.T, u *User)
	}{
		{
			name: "normalizes email and defaults status",
			in:   UserInput{Name: " Ana ", Email: " Ana@Farma.com ", Role: RoleCustomer},
			check: func(t *testing.T, u *User) {
				assert.Equal(t, "Ana", u.Name)
				assert.Equal(t, "ana@farma.com", u.Email)
				assert.Equal(t, UserActive, u.Status)
			},
		},
		{name: "missing name", in: UserInput{Email: "a@b.com", Role: RoleAdmin}, wantErr: true},
		{name: "bad email", in: UserInput{Name: "x", Email: "not-an-email", Role: RoleAdmin}, wantErr: true},
		{name: "display name email", in: UserInput{Name: "x", Email: "X <x@b.com>", Role: RoleAdmin}, wantErr: true},
		{name: "unknown role", in: UserInput{Name: "x", Email: "x@b.com", Role: "root"}, wantErr: true},
		{name: "unknown status", in: UserInput{Name: "x", Email: "x@b.com", Role: RoleSeller, Status: "gone"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NewUser(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			tt.check(t, u)
		})
	}
}

func TestUser_ToggleBlockTwiceRestores(t *testing.T) {
	u := &User{Status: UserActive}
	u.ToggleBlock()
	assert.Equal(t, UserBlocked, u.Status)
	u.ToggleBlock()
	assert.Equal(t, UserActive, u.Status)
}

func TestNewTransaction(t *testing.T) {
	tx, err := NewTransaction(TransactionInput{OrderID: "o1", Amount: 1990, Method: MethodPix})
	require.NoError(t, err)
	assert.Equal(t, TxPending, tx.Status)

	_, err = NewTransaction(TransactionInput{OrderID: "o1", Amount: 0, Method: MethodPix})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = NewTransaction(TransactionInput{OrderID: "o1", Amount: 10, Method: "paypal"})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = NewTransaction(TransactionInput{Amount: 10, Method: MethodBoleto})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestTransaction_RefundIsOneWay(t *testing.T) {
	tx := &Transaction{Status: TxPaid}
	assert.True(t, tx.Refund())
	assert.Equal(t, TxRefunded, tx.Status)
	assert.False(t, tx.Refund())
	assert.Equal(t, TxRefunded, tx.Status)
}

func TestToken_ValidAt(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tok := NewToken("T1", "R1", 3600, now)
	assert.Equal(t, now.Add(time.Hour), tok.ExpiresAt)
	assert.True(t, tok.ValidAt(now))

	assert.False(t, Token{AccessToken: "a", ExpiresAt: now.Add(4 * time.Minute)}.ValidAt(now))
	assert.True(t, Token{AccessToken: "a", ExpiresAt: now.Add(6 * time.Minute)}.ValidAt(now))
	assert.False(t, Token{AccessToken: "a", ExpiresAt: now.Add(-time.Minute)}.ValidAt(now))
	assert.False(t, Token{ExpiresAt: now.Add(time.Hour)}.ValidAt(now))
}

func TestNewUser_ErrorNamesField(t *testing.T) {
	_, err := NewUser(UserInput{Name: "x", Email: "x@b.com"})
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "role required")

	_, err = NewUser(UserInput{Name: strings.Repeat("a", 129), Email: "x@b.com", Role: RoleSeller})
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "name")
}

func TestTransactionFilter_Validate(t *testing.T) {
	assert.NoError(t, TransactionFilter{}.Validate())
	assert.NoError(t, TransactionFilter{Status: TxChargeback, Method: MethodCartao}.Validate())

	err := TransactionFilter{Method: "cheque"}.Validate()
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), `unknown method "cheque"`)
	assert.ErrorIs(t, TransactionFilter{Status: "void"}.Validate(), ErrInvalid)
}
