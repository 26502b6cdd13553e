package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"paygate/internal/payment/models"
	"paygate/pkg/domain"
	derrors "paygate/pkg/domain-errors"
)

// PostgresAuditStore persists payment records in PostgreSQL. The primary key
// (agent_id, sequence) enforces the append-only contract at the database
// level: a duplicate sequence write fails instead of overwriting.
type PostgresAuditStore struct {
	db *sql.DB
}

func NewPostgresAuditStore(db *sql.DB) *PostgresAuditStore {
	return &PostgresAuditStore{db: db}
}

// Schema is applied by deployment tooling; kept here so the store and its
// table never drift apart.
const AuditSchema = `
CREATE TABLE IF NOT EXISTS payment_records (
    agent_id   TEXT    NOT NULL,
    sequence   BIGINT  NOT NULL,
    recipient  TEXT    NOT NULL,
    amount     BIGINT  NOT NULL,
    success    BOOLEAN NOT NULL,
    time_index BIGINT  NOT NULL,
    memo       TEXT    NOT NULL DEFAULT '',
    PRIMARY KEY (agent_id, sequence)
);`

// EnsureSchema creates the payment_records table if missing.
func (s *PostgresAuditStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, AuditSchema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *PostgresAuditStore) Append(ctx context.Context, record *models.PaymentRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_records (agent_id, sequence, recipient, amount, success, time_index, memo)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.AgentID.String(),
		int64(record.Sequence),
		record.Recipient.String(),
		int64(record.Amount),
		record.Success,
		int64(record.TimeIndex),
		record.Memo,
	)
	if err != nil {
		return fmt.Errorf("append payment record: %w", err)
	}
	return nil
}

func (s *PostgresAuditStore) Count(ctx context.Context, agentID domain.Principal) (uint64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM payment_records WHERE agent_id = $1`,
		agentID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count payment records: %w", err)
	}
	return uint64(count), nil
}

func (s *PostgresAuditStore) Get(ctx context.Context, agentID domain.Principal, sequence uint64) (*models.PaymentRecord, error) {
	var (
		record    models.PaymentRecord
		agent     string
		recipient string
		amount    int64
		timeIndex int64
		seq       int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT agent_id, sequence, recipient, amount, success, time_index, memo
		 FROM payment_records WHERE agent_id = $1 AND sequence = $2`,
		agentID.String(), int64(sequence),
	).Scan(&agent, &seq, &recipient, &amount, &record.Success, &timeIndex, &record.Memo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, derrors.Newf(derrors.CodeNotFound, "no audit record %d for agent %s", sequence, agentID)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment record: %w", err)
	}
	record.AgentID = domain.Principal(agent)
	record.Sequence = uint64(seq)
	record.Recipient = domain.Principal(recipient)
	record.Amount = uint64(amount)
	record.TimeIndex = uint64(timeIndex)
	return &record, nil
}
