package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"paygate/internal/payment/models"
	derrors "paygate/pkg/domain-errors"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) TestRuleSetStore() {
	st := NewInMemoryRuleSetStore()

	_, err := st.Get(s.ctx, "agent-1")
	s.Equal(derrors.CodeRulesNotFound, derrors.CodeOf(err))

	s.Require().NoError(st.Put(s.ctx, &models.RuleSet{AgentID: "agent-1", MaxAmount: 100, Version: 1}))
	got, err := st.Get(s.ctx, "agent-1")
	s.Require().NoError(err)
	s.Equal(uint64(100), got.MaxAmount)

	s.Run("returned value is a copy", func() {
		got.MaxAmount = 999
		again, err := st.Get(s.ctx, "agent-1")
		s.Require().NoError(err)
		s.Equal(uint64(100), again.MaxAmount)
	})

	s.Run("put replaces", func() {
		s.Require().NoError(st.Put(s.ctx, &models.RuleSet{AgentID: "agent-1", MaxAmount: 200, Version: 2}))
		got, err := st.Get(s.ctx, "agent-1")
		s.Require().NoError(err)
		s.Equal(uint64(2), got.Version)
	})
}

func (s *MemoryStoreSuite) TestWhitelistStore() {
	st := NewInMemoryWhitelistStore()

	allowed, err := st.IsAllowed(s.ctx, "agent-1", 1, "merchant")
	s.Require().NoError(err)
	s.False(allowed)

	s.Require().NoError(st.Allow(s.ctx, "agent-1", 1, "merchant"))

	allowed, err = st.IsAllowed(s.ctx, "agent-1", 1, "merchant")
	s.Require().NoError(err)
	s.True(allowed)

	s.Run("entries are version scoped", func() {
		allowed, err := st.IsAllowed(s.ctx, "agent-1", 2, "merchant")
		s.Require().NoError(err)
		s.False(allowed)
	})

	s.Run("entries are agent scoped", func() {
		allowed, err := st.IsAllowed(s.ctx, "agent-2", 1, "merchant")
		s.Require().NoError(err)
		s.False(allowed)
	})
}

func (s *MemoryStoreSuite) TestSpendingStore() {
	st := NewInMemorySpendingStore()

	total, err := st.Total(s.ctx, "agent-1", models.PeriodDay, 0)
	s.Require().NoError(err)
	s.Zero(total)

	s.Require().NoError(st.Add(s.ctx, "agent-1", models.PeriodDay, 0, 300))
	s.Require().NoError(st.Add(s.ctx, "agent-1", models.PeriodDay, 0, 200))

	total, err = st.Total(s.ctx, "agent-1", models.PeriodDay, 0)
	s.Require().NoError(err)
	s.Equal(uint64(500), total)

	s.Run("buckets are independent", func() {
		total, err := st.Total(s.ctx, "agent-1", models.PeriodDay, 1)
		s.Require().NoError(err)
		s.Zero(total)
	})

	s.Run("periods are independent", func() {
		total, err := st.Total(s.ctx, "agent-1", models.PeriodMonth, 0)
		s.Require().NoError(err)
		s.Zero(total)
	})
}

func (s *MemoryStoreSuite) TestRateLimitStore() {
	st := NewInMemoryRateLimitStore()

	_, ok, err := st.Last(s.ctx, "agent-1")
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(st.SetLast(s.ctx, "agent-1", 42))
	last, ok, err := st.Last(s.ctx, "agent-1")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(uint64(42), last)
}

func (s *MemoryStoreSuite) TestAuditStore() {
	st := NewInMemoryAuditStore()

	count, err := st.Count(s.ctx, "agent-1")
	s.Require().NoError(err)
	s.Zero(count)

	record := &models.PaymentRecord{AgentID: "agent-1", Sequence: 1, Recipient: "merchant", Amount: 50, Success: true, TimeIndex: 7}
	s.Require().NoError(st.Append(s.ctx, record))

	s.Run("duplicate sequence rejected", func() {
		err := st.Append(s.ctx, &models.PaymentRecord{AgentID: "agent-1", Sequence: 1})
		s.Equal(derrors.CodeInternal, derrors.CodeOf(err))
	})

	s.Run("count follows the highest sequence", func() {
		s.Require().NoError(st.Append(s.ctx, &models.PaymentRecord{AgentID: "agent-1", Sequence: 3}))
		count, err := st.Count(s.ctx, "agent-1")
		s.Require().NoError(err)
		s.Equal(uint64(3), count)
	})

	s.Run("missing sequence is a gap", func() {
		_, err := st.Get(s.ctx, "agent-1", 2)
		s.Equal(derrors.CodeNotFound, derrors.CodeOf(err))
	})

	s.Run("get returns the stored record", func() {
		got, err := st.Get(s.ctx, "agent-1", 1)
		s.Require().NoError(err)
		s.Equal(uint64(50), got.Amount)
		s.True(got.Success)
	})
}

func (s *MemoryStoreSuite) TestHaltStore() {
	st := NewInMemoryHaltStore()

	global, err := st.Global(s.ctx)
	s.Require().NoError(err)
	s.False(global)

	s.Require().NoError(st.SetGlobal(s.ctx, true))
	global, err = st.Global(s.ctx)
	s.Require().NoError(err)
	s.True(global)

	halted, err := st.Agent(s.ctx, "agent-1")
	s.Require().NoError(err)
	s.False(halted, "global flag does not leak into per-agent flags")

	s.Require().NoError(st.SetAgent(s.ctx, "agent-1", true))
	halted, err = st.Agent(s.ctx, "agent-1")
	s.Require().NoError(err)
	s.True(halted)
}
