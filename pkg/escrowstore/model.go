package escrowstore

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/rentvault/escrow-indexer/pkg/escrow"
)

// UserDao is a data access object that maps directly to the 'users' table in PostgreSQL.
type UserDao struct {
	bun.BaseModel `bun:"table:users,alias:u"`
	ID            int64     `bun:"id,pk,autoincrement"`
	WalletAddress string    `bun:"wallet_address,unique,notnull,type:varchar(42)"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// DepositDao is a data access object that maps directly to the 'deposits' table in PostgreSQL.
type DepositDao struct {
	bun.BaseModel      `bun:"table:deposits,alias:d"`
	ID                 int64           `bun:"id,pk,autoincrement"`
	OnChainID          string          `bun:"on_chain_id,unique,notnull,type:numeric(78,0)"`
	DepositorAddress   string          `bun:"depositor_address,notnull,type:varchar(42)"`
	BeneficiaryAddress string          `bun:"beneficiary_address,notnull,type:varchar(42)"`
	DepositAmount      decimal.Decimal `bun:"deposit_amount,notnull,type:numeric(78,0)"`
	PeriodStart        time.Time       `bun:"period_start,notnull"`
	PeriodEnd          time.Time       `bun:"period_end,notnull"`
	AutoReleaseTime    time.Time       `bun:"auto_release_time,notnull"`
	Status             string          `bun:"status,notnull,type:varchar(32)"`
	CreatedAt          time.Time       `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt          time.Time       `bun:"updated_at,nullzero,default:current_timestamp"`

	Dispute *DisputeDao `bun:"rel:has-one,join:id=deposit_id"`
}

// DisputeDao is a data access object that maps directly to the 'disputes' table in PostgreSQL.
type DisputeDao struct {
	bun.BaseModel      `bun:"table:disputes,alias:dp"`
	ID                 int64           `bun:"id,pk,autoincrement"`
	DepositID          int64           `bun:"deposit_id,unique,notnull"`
	ClaimedAmount      decimal.Decimal `bun:"claimed_amount,notnull,type:numeric(78,0)"`
	EvidenceHash       string          `bun:"evidence_hash,notnull,type:text"`
	DisputeStartTime   time.Time       `bun:"dispute_start_time,notnull"`
	DisputeDeadline    time.Time       `bun:"dispute_deadline,notnull"`
	DepositorResponded bool            `bun:"depositor_responded,notnull,default:false"`
	ResponseHash       *string         `bun:"response_hash,type:text"`
	CreatedAt          time.Time       `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt          time.Time       `bun:"updated_at,nullzero,default:current_timestamp"`

	Deposit *DepositDao `bun:"rel:belongs-to,join:deposit_id=id"`
}

func toUser(dao *UserDao) *escrow.User {
	return &escrow.User{
		ID:            dao.ID,
		WalletAddress: dao.WalletAddress,
		CreatedAt:     dao.CreatedAt,
	}
}

func toDepositDao(d *escrow.Deposit) *DepositDao {
	return &DepositDao{
		OnChainID:          d.OnChainID,
		DepositorAddress:   d.DepositorAddress,
		BeneficiaryAddress: d.BeneficiaryAddress,
		DepositAmount:      d.DepositAmount,
		PeriodStart:        d.PeriodStart,
		PeriodEnd:          d.PeriodEnd,
		AutoReleaseTime:    d.AutoReleaseTime,
		Status:             string(d.Status),
	}
}

func toDeposit(dao *DepositDao) *escrow.Deposit {
	d := &escrow.Deposit{
		ID:                 dao.ID,
		OnChainID:          dao.OnChainID,
		DepositorAddress:   dao.DepositorAddress,
		BeneficiaryAddress: dao.BeneficiaryAddress,
		DepositAmount:      dao.DepositAmount,
		PeriodStart:        dao.PeriodStart,
		PeriodEnd:          dao.PeriodEnd,
		AutoReleaseTime:    dao.AutoReleaseTime,
		Status:             escrow.DepositStatus(dao.Status),
		CreatedAt:          dao.CreatedAt,
		UpdatedAt:          dao.UpdatedAt,
	}
	if dao.Dispute != nil {
		d.Dispute = toDispute(dao.Dispute)
	}
	return d
}

func toDisputeDao(d *escrow.Dispute) *DisputeDao {
	dao := &DisputeDao{
		DepositID:          d.DepositID,
		ClaimedAmount:      d.ClaimedAmount,
		EvidenceHash:       d.EvidenceHash,
		DisputeStartTime:   d.DisputeStartTime,
		DisputeDeadline:    d.DisputeDeadline,
		DepositorResponded: d.DepositorResponded,
	}
	if d.ResponseHash != "" {
		dao.ResponseHash = &d.ResponseHash
	}
	return dao
}

func toDispute(dao *DisputeDao) *escrow.Dispute {
	d := &escrow.Dispute{
		ID:                 dao.ID,
		DepositID:          dao.DepositID,
		ClaimedAmount:      dao.ClaimedAmount,
		EvidenceHash:       dao.EvidenceHash,
		DisputeStartTime:   dao.DisputeStartTime,
		DisputeDeadline:    dao.DisputeDeadline,
		DepositorResponded: dao.DepositorResponded,
	}
	if dao.ResponseHash != nil {
		d.ResponseHash = *dao.ResponseHash
	}
	d.CreatedAt = dao.CreatedAt
	d.UpdatedAt = dao.UpdatedAt
	if dao.Deposit != nil {
		d.Deposit = toDeposit(dao.Deposit)
	}
	return d
}
