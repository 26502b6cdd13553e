package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketFor(t *testing.T) {
	assert.Equal(t, uint64(0), BucketFor(PeriodDay, 0))
	assert.Equal(t, uint64(0), BucketFor(PeriodDay, DayLength-1))
	assert.Equal(t, uint64(1), BucketFor(PeriodDay, DayLength))
	assert.Equal(t, uint64(0), BucketFor(PeriodMonth, MonthLength-1))
	assert.Equal(t, uint64(1), BucketFor(PeriodMonth, MonthLength))
	assert.Equal(t, uint64(30), BucketFor(PeriodDay, MonthLength), "a month spans thirty day buckets")
}
