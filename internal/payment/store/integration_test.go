//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"paygate/internal/payment/models"
	derrors "paygate/pkg/domain-errors"
	"paygate/pkg/testutil/containers"
)

type PostgresAuditSuite struct {
	suite.Suite
	ctx   context.Context
	store *PostgresAuditStore
}

func TestPostgresAuditSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAuditSuite))
}

func (s *PostgresAuditSuite) SetupSuite() {
	s.ctx = context.Background()
	pg := containers.NewPostgresContainer(s.T())
	s.store = NewPostgresAuditStore(pg.DB)
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
}

func (s *PostgresAuditSuite) TestAppendCountGet() {
	record := &models.PaymentRecord{
		AgentID:   "agent-pg",
		Sequence:  1,
		Recipient: "merchant",
		Amount:    250,
		Success:   true,
		TimeIndex: 12,
		Memo:      "first",
	}
	s.Require().NoError(s.store.Append(s.ctx, record))

	s.Run("duplicate sequence rejected", func() {
		err := s.store.Append(s.ctx, &models.PaymentRecord{AgentID: "agent-pg", Sequence: 1})
		s.Error(err)
	})

	s.Run("count follows the highest sequence", func() {
		s.Require().NoError(s.store.Append(s.ctx, &models.PaymentRecord{
			AgentID: "agent-pg", Sequence: 3, Recipient: "merchant", Amount: 10, TimeIndex: 20,
		}))
		count, err := s.store.Count(s.ctx, "agent-pg")
		s.Require().NoError(err)
		s.Equal(uint64(3), count)
	})

	s.Run("count is zero for an unknown agent", func() {
		count, err := s.store.Count(s.ctx, "agent-unknown")
		s.Require().NoError(err)
		s.Zero(count)
	})

	s.Run("get round-trips the record", func() {
		got, err := s.store.Get(s.ctx, "agent-pg", 1)
		s.Require().NoError(err)
		s.Equal(record.Recipient, got.Recipient)
		s.Equal(record.Amount, got.Amount)
		s.Equal(record.TimeIndex, got.TimeIndex)
		s.Equal(record.Memo, got.Memo)
		s.True(got.Success)
	})

	s.Run("missing sequence is a gap", func() {
		_, err := s.store.Get(s.ctx, "agent-pg", 2)
		s.Equal(derrors.CodeNotFound, derrors.CodeOf(err))
	})
}

type RedisSpendingSuite struct {
	suite.Suite
	ctx   context.Context
	store *RedisSpendingStore
}

func TestRedisSpendingSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSpendingSuite))
}

func (s *RedisSpendingSuite) SetupSuite() {
	s.ctx = context.Background()
	rd := containers.NewRedisContainer(s.T())
	s.store = NewRedisSpendingStore(rd.Client)
}

func (s *RedisSpendingSuite) TestTotalsAccumulate() {
	total, err := s.store.Total(s.ctx, "agent-rd", models.PeriodDay, 0)
	s.Require().NoError(err)
	s.Zero(total, "missing key reads as zero")

	s.Require().NoError(s.store.Add(s.ctx, "agent-rd", models.PeriodDay, 0, 300))
	s.Require().NoError(s.store.Add(s.ctx, "agent-rd", models.PeriodDay, 0, 200))

	total, err = s.store.Total(s.ctx, "agent-rd", models.PeriodDay, 0)
	s.Require().NoError(err)
	s.Equal(uint64(500), total)

	s.Run("buckets and periods stay separate", func() {
		total, err := s.store.Total(s.ctx, "agent-rd", models.PeriodDay, 1)
		s.Require().NoError(err)
		s.Zero(total)

		total, err = s.store.Total(s.ctx, "agent-rd", models.PeriodMonth, 0)
		s.Require().NoError(err)
		s.Zero(total)
	})

	s.Run("agents stay separate", func() {
		total, err := s.store.Total(s.ctx, "agent-other", models.PeriodDay, 0)
		s.Require().NoError(err)
		s.Zero(total)
	})
}
