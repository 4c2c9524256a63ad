package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TestRetrySuite struct {
	suite.Suite
	ctx context.Context
}

func (suite *TestRetrySuite) SetupTest() {
	suite.ctx = context.Background()
}

func (suite *TestRetrySuite) TestSuccessFirstAttempt() {
	calls := 0
	err := Do(suite.ctx, 3, time.Millisecond, nil, func(context.Context) error {
		calls++
		return nil
	})
	suite.Require().NoError(err)
	suite.Equal(1, calls)
}

func (suite *TestRetrySuite) TestSuccessAfterFailures() {
	calls := 0
	var notified []int
	notify := func(err error, attempt int, next time.Duration) {
		notified = append(notified, attempt)
		suite.Equal(time.Millisecond, next)
	}

	err := Do(suite.ctx, 3, time.Millisecond, notify, func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("attempt %d", calls)
		}
		return nil
	})
	suite.Require().NoError(err)
	suite.Equal(3, calls)
	suite.Equal([]int{1, 2}, notified)
}

func (suite *TestRetrySuite) TestLastFailureUnmodified() {
	calls := 0
	var last error
	err := Do(suite.ctx, 4, time.Millisecond, nil, func(context.Context) error {
		calls++
		last = errors.New("node unavailable")
		return last
	})
	suite.Require().Error(err)
	suite.Equal(4, calls)
	// the very same error value, not a wrapper
	suite.Same(last, err)
}

func (suite *TestRetrySuite) TestNoNotifyAfterLastAttempt() {
	notified := 0
	_ = Do(suite.ctx, 2, time.Millisecond, func(error, int, time.Duration) { notified++ }, func(context.Context) error {
		return errors.New("fail")
	})
	suite.Equal(1, notified)
}

func (suite *TestRetrySuite) TestAttemptsBelowOne() {
	for _, attempts := range []int{0, -5} {
		calls := 0
		err := Do(suite.ctx, attempts, time.Millisecond, nil, func(context.Context) error {
			calls++
			return errors.New("fail")
		})
		suite.Require().Error(err)
		suite.Equal(1, calls)
	}
}

func (suite *TestRetrySuite) TestDelayBetweenAttempts() {
	delay := 20 * time.Millisecond
	start := time.Now()
	_ = Do(suite.ctx, 3, delay, nil, func(context.Context) error {
		return errors.New("fail")
	})
	// two waits: between 1-2 and 2-3
	suite.GreaterOrEqual(time.Since(start), 2*delay)
}

func (suite *TestRetrySuite) TestContextCancelledWhileWaiting() {
	ctx, cancel := context.WithCancel(suite.ctx)
	calls := 0
	err := Do(ctx, 5, time.Hour, nil, func(context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	})
	suite.Require().ErrorIs(err, context.Canceled)
	suite.Equal(1, calls)
}

func (suite *TestRetrySuite) TestDoWithData() {
	calls := 0
	value, err := DoWithData(suite.ctx, 3, time.Millisecond, nil, func(context.Context) (uint64, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("fail")
		}
		return 42, nil
	})
	suite.Require().NoError(err)
	suite.Equal(uint64(42), value)

	value, err = DoWithData(suite.ctx, 2, time.Millisecond, nil, func(context.Context) (uint64, error) {
		return 7, errors.New("fail")
	})
	suite.Require().Error(err)
	suite.Zero(value)
}

func TestRetry(t *testing.T) {
	suite.Run(t, new(TestRetrySuite))
}
