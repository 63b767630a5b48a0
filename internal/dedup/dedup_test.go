package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockChecker is a mock implementation of the ExistenceChecker interface.
type MockChecker struct {
	mock.Mock
}

func (m *MockChecker) Exists(ctx context.Context, noteID string) (bool, error) {
	args := m.Called(ctx, noteID)
	return args.Bool(0), args.Error(1)
}

func TestIsDuplicateFirstFalseThenTrue(t *testing.T) {
	checker := new(MockChecker)
	checker.On("Exists", mock.Anything, "X").Return(false, nil).Once()

	d := New(checker, nil)
	ctx := context.Background()

	require.False(t, d.IsDuplicate(ctx, "X"))
	require.True(t, d.IsDuplicate(ctx, "X"), "second call must hit the in-run set")

	// The sink must not be queried on the second call.
	checker.AssertNumberOfCalls(t, "Exists", 1)
}

func TestIsDuplicatePersistedElsewhere(t *testing.T) {
	checker := new(MockChecker)
	checker.On("Exists", mock.Anything, "Y").Return(true, nil).Once()

	d := New(checker, nil)
	require.True(t, d.IsDuplicate(context.Background(), "Y"), "sink hit counts as duplicate")
	require.True(t, d.IsDuplicate(context.Background(), "Y"))
	checker.AssertNumberOfCalls(t, "Exists", 1)
}

func TestIsDuplicateCheckerError(t *testing.T) {
	checker := new(MockChecker)
	checker.On("Exists", mock.Anything, "Z").Return(false, errors.New("sink down")).Once()

	d := New(checker, nil)
	require.False(t, d.IsDuplicate(context.Background(), "Z"), "sink errors must not drop items")
}

func TestIsDuplicateNilChecker(t *testing.T) {
	d := New(nil, nil)
	require.False(t, d.IsDuplicate(context.Background(), "A"))
	require.True(t, d.IsDuplicate(context.Background(), "A"))
	require.Equal(t, 1, d.SeenCount())
}
