package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

var ErrInvalidAdjustment = errors.New("invalid adjustment")

type balanceRepo interface {
	GetBalances(ctx context.Context, customerID int64) ([]model.Balance, error)
	ListLedgerEntries(ctx context.Context, customerID int64, limit, offset int) ([]model.LedgerEntry, error)
	SumLedger(ctx context.Context, balanceID uuid.UUID) (decimal.Decimal, error)
	AdjustBalance(ctx context.Context, customerID int64, kind model.PurseKind, direction model.Direction, amount decimal.Decimal, metadata []byte) (*model.LedgerEntry, error)
}

type BalanceService struct {
	repo balanceRepo
	log  *logrus.Logger
}

// moneyScale matches the NUMERIC(18,2) money columns.
const moneyScale = 2

func wholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(moneyScale))
}

func NewBalanceService(repo balanceRepo, log *logrus.Logger) *BalanceService {
	return &BalanceService{repo: repo, log: log}
}

type AdjustmentRequest struct {
	CustomerID int64           `json:"customer_id"`
	Kind       model.PurseKind `json:"kind"`
	Direction  model.Direction `json:"direction"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note"`
	AdminID    string          `json:"-"`
}

// Discrepancy is a purse whose stored amount disagrees with its ledger.
type Discrepancy struct {
	BalanceID uuid.UUID       `json:"balance_id"`
	Kind      model.PurseKind `json:"kind"`
	Stored    decimal.Decimal `json:"stored"`
	Journaled decimal.Decimal `json:"journaled"`
}

func (s *BalanceService) GetBalances(ctx context.Context, customerID int64) ([]model.Balance, error) {
	return s.repo.GetBalances(ctx, customerID)
}

// GetLedger returns ledger history, newest first
func (s *BalanceService) GetLedger(ctx context.Context, customerID int64, limit, offset int) ([]model.LedgerEntry, error) {
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListLedgerEntries(ctx, customerID, clampLimit(limit), offset)
}

// Adjust applies a manual credit or debit on behalf of an admin.
func (s *BalanceService) Adjust(ctx context.Context, req AdjustmentRequest) (*model.LedgerEntry, error) {
	switch {
	case req.CustomerID <= 0:
		return nil, fmt.Errorf("%w: customer_id is required", ErrInvalidAdjustment)
	case !req.Kind.Valid():
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidAdjustment, req.Kind)
	case req.Direction != model.DirectionCredit && req.Direction != model.DirectionDebit:
		return nil, fmt.Errorf("%w: direction must be credit or debit", ErrInvalidAdjustment)
	case !req.Amount.IsPositive():
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidAdjustment)
	case !wholeCents(req.Amount):
		return nil, fmt.Errorf("%w: amount has more than %d decimal places", ErrInvalidAdjustment, moneyScale)
	case strings.TrimSpace(req.Note) == "":
		return nil, fmt.Errorf("%w: note is required", ErrInvalidAdjustment)
	}

	metadata, err := json.Marshal(map[string]string{
		"note":  strings.TrimSpace(req.Note),
		"admin": req.AdminID,
	})
	if err != nil {
		return nil, err
	}

	entry, err := s.repo.AdjustBalance(ctx, req.CustomerID, req.Kind, req.Direction, req.Amount, metadata)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"customer_id":   req.CustomerID,
		"kind":          req.Kind,
		"direction":     req.Direction,
		"amount":        req.Amount.String(),
		"balance_after": entry.BalanceAfter.String(),
		"admin":         req.AdminID,
	}).Info("Manual balance adjustment applied")

	return entry, nil
}

// Reconcile compares every purse of a customer with the sum of its ledger.
func (s *BalanceService) Reconcile(ctx context.Context, customerID int64) ([]Discrepancy, error) {
	balances, err := s.repo.GetBalances(ctx, customerID)
	if err != nil {
		return nil, err
	}

	discrepancies := []Discrepancy{}
	for _, b := range balances {
		sum, err := s.repo.SumLedger(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to sum ledger for balance %s: %w", b.ID, err)
		}
		if !sum.Equal(b.Amount) {
			discrepancies = append(discrepancies, Discrepancy{
				BalanceID: b.ID,
				Kind:      b.Kind,
				Stored:    b.Amount,
				Journaled: sum,
			})
		}
	}
	return discrepancies, nil
}
