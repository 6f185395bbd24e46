package escrowstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/rentvault/escrow-indexer/pkg/escrow"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the escrow store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) UpsertUser(ctx context.Context, walletAddress string) error {
	// Addresses are stored as received on-chain; lookups are case-insensitive.
	dao := &UserDao{WalletAddress: walletAddress}

	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (wallet_address) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

func (s *pgStore) GetUserByWalletAddress(ctx context.Context, walletAddress string) (*escrow.User, error) {
	dao := new(UserDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("LOWER(wallet_address) = LOWER(?)", walletAddress).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return toUser(dao), nil
}

func (s *pgStore) CreateDeposit(ctx context.Context, deposit *escrow.Deposit) error {
	dao := toDepositDao(deposit)

	res, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (on_chain_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create deposit: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read insert result: %w", err)
	}
	if rows == 0 {
		return ErrDepositExists
	}

	return nil
}

func (s *pgStore) GetDepositByOnChainID(ctx context.Context, onChainID string) (*escrow.Deposit, error) {
	dao := new(DepositDao)
	err := s.db.NewSelect().
		Model(dao).
		Relation("Dispute").
		Where("d.on_chain_id = ?", onChainID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDepositNotFound
		}
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}

	return toDeposit(dao), nil
}

func (s *pgStore) ListDeposits(ctx context.Context, opts ...QueryOption) ([]*escrow.Deposit, error) {
	options := &QueryOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var daos []DepositDao
	query := s.db.NewSelect().
		Model(&daos).
		Relation("Dispute").
		Order("d.created_at DESC")

	if options.Depositor != nil {
		query = query.Where("LOWER(d.depositor_address) = LOWER(?)", *options.Depositor)
	}
	if options.Beneficiary != nil {
		query = query.Where("LOWER(d.beneficiary_address) = LOWER(?)", *options.Beneficiary)
	}
	if options.Participant != nil {
		query = query.Where(
			"LOWER(d.depositor_address) = LOWER(?) OR LOWER(d.beneficiary_address) = LOWER(?)",
			*options.Participant, *options.Participant,
		)
	}
	if options.Status != nil {
		query = query.Where("d.status = ?", string(*options.Status))
	}

	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}

	deposits := make([]*escrow.Deposit, len(daos))
	for i := range daos {
		deposits[i] = toDeposit(&daos[i])
	}
	return deposits, nil
}

func (s *pgStore) UpdateDepositStatus(ctx context.Context, onChainID string, to escrow.DepositStatus) error {
	_, err := s.db.NewUpdate().
		Model((*DepositDao)(nil)).
		Set("status = ?", string(to)).
		Set("updated_at = NOW()").
		Where("on_chain_id = ?", onChainID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update deposit status: %w", err)
	}
	return nil
}

func (s *pgStore) TransitionDepositStatus(ctx context.Context, onChainID string, from, to escrow.DepositStatus) (bool, error) {
	res, err := s.db.NewUpdate().
		Model((*DepositDao)(nil)).
		Set("status = ?", string(to)).
		Set("updated_at = NOW()").
		Where("on_chain_id = ?", onChainID).
		Where("status = ?", string(from)).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to transition deposit status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return rows > 0, nil
}

func (s *pgStore) OpenDispute(ctx context.Context, onChainID string, dispute *escrow.Dispute) (bool, error) {
	flipped := false

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var depositID int64
		_, err := tx.NewUpdate().
			Model((*DepositDao)(nil)).
			Set("status = ?", string(escrow.StatusDisputed)).
			Set("updated_at = NOW()").
			Where("on_chain_id = ?", onChainID).
			Where("status = ?", string(escrow.StatusActive)).
			Returning("id").
			Exec(ctx, &depositID)
		if err != nil {
			// With a scan destination, bun reports a zero-row conditional
			// update as sql.ErrNoRows: deposit missing or not ACTIVE
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("failed to flip deposit to disputed: %w", err)
		}

		dao := toDisputeDao(dispute)
		dao.DepositID = depositID
		if _, err := tx.NewInsert().Model(dao).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert dispute: %w", err)
		}

		dispute.ID = dao.ID
		dispute.DepositID = depositID
		flipped = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return flipped, nil
}

func (s *pgStore) GetDisputeByDepositID(ctx context.Context, depositID int64) (*escrow.Dispute, error) {
	dao := new(DisputeDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("deposit_id = ?", depositID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}

	return toDispute(dao), nil
}

func (s *pgStore) ListDisputes(ctx context.Context) ([]*escrow.Dispute, error) {
	var daos []DisputeDao
	err := s.db.NewSelect().
		Model(&daos).
		Relation("Deposit").
		Order("dp.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list disputes: %w", err)
	}

	disputes := make([]*escrow.Dispute, len(daos))
	for i := range daos {
		disputes[i] = toDispute(&daos[i])
	}
	return disputes, nil
}

func (s *pgStore) SetDisputeResponse(ctx context.Context, onChainID string, responseHash string) (bool, error) {
	res, err := s.db.NewUpdate().
		Model((*DisputeDao)(nil)).
		TableExpr("deposits AS d").
		Set("response_hash = ?", responseHash).
		Set("depositor_responded = TRUE").
		Set("updated_at = NOW()").
		Where("dp.deposit_id = d.id").
		Where("d.on_chain_id = ?", onChainID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to set dispute response: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return rows > 0, nil
}
