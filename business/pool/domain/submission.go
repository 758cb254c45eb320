package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Kind names the pool entry point a submission invoked.
type Kind string

const (
	KindSwap     Kind = "swap"
	KindWithdraw Kind = "withdraw"
)

// Status is the final state of a submission.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusReverted  Status = "reverted"
	StatusFailed    Status = "failed"
)

// Submission records one invocation attempt against the pool.
type Submission struct {
	ID        uuid.UUID
	Kind      Kind
	Pool      string
	Account   string
	Args      map[string]string
	SpotAInB  string
	TxHash    string
	Block     uint64
	Status    Status
	Error     string
	CreatedAt time.Time
}

// NewSubmission starts a record for kind with a fresh id.
func NewSubmission(kind Kind, pool, account string) *Submission {
	return &Submission{
		ID:        uuid.New(),
		Kind:      kind,
		Pool:      pool,
		Account:   account,
		Args:      map[string]string{},
		CreatedAt: time.Now().UTC(),
	}
}

// SwapArgs fills Args from a swap request.
func (s *Submission) SwapArgs(r *SwapRequest) {
	s.Args["to"] = r.To().Hex()
	s.Args["buy_a"] = strconv.FormatBool(r.BuyA())
	s.Args["out"] = r.Out().String()
	s.Args["in_max"] = r.InMax().String()
}

// WithdrawArgs fills Args from a withdraw request.
func (s *Submission) WithdrawArgs(r *WithdrawRequest) {
	s.Args["to"] = r.To().Hex()
	s.Args["share_amount"] = r.ShareAmount().String()
	s.Args["min_a"] = r.MinA().String()
	s.Args["min_b"] = r.MinB().String()
}

// Outcome is what the pool reported for a settled submission.
type Outcome struct {
	TxHash  string
	Block   uint64
	GasUsed uint64
}
