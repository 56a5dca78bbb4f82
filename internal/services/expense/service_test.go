package expense

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepgram/catgpt/internal/domain/expense/models"
)

func newTestService() *Service {
	s := NewService()
	s.random = func() float64 { return 0.25 }
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestSubmitCoffee(t *testing.T) {
	s := newTestService()

	exp, err := s.Submit("Coffee", "3.50")
	require.NoError(t, err)

	assert.Equal(t, "Coffee", exp.Desc)
	assert.Equal(t, 3.5, exp.Amount)
	assert.Equal(t, int64(2500000), exp.ID)

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, exp, list[0])
	assert.Equal(t, models.Form{}, s.Form())

	id, ok := s.LastID()
	assert.True(t, ok)
	assert.Equal(t, exp.ID, id)
}

func TestSubmitAmountForms(t *testing.T) {
	tests := []struct {
		amount string
		want   float64
	}{
		{".5", 0.5},
		{"3.", 3},
		{"1e3", 1000},
		{" 3.50 ", 3.5},
		{"-2", -2},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			s := newTestService()
			exp, err := s.Submit("Coffee", tt.amount)
			require.NoError(t, err)
			assert.Equal(t, tt.want, exp.Amount)
			assert.Len(t, s.List(), 1)
		})
	}
}

func TestSubmitRejected(t *testing.T) {
	tests := []struct {
		name    string
		desc    string
		amount  string
		wantErr error
	}{
		{"Empty description", "", "3.50", ErrMissingField},
		{"Empty amount", "Coffee", "", ErrMissingField},
		{"Both empty", "", "", ErrMissingField},
		{"Whitespace description", "   ", "1", ErrMissingField},
		{"Not a number", "Coffee", "three", ErrInvalidAmount},
		{"Trailing garbage", "Coffee", "3.50abc", ErrInvalidAmount},
		{"Infinite", "Coffee", "Inf", ErrInvalidAmount},
		{"Not a number literal", "Coffee", "NaN", ErrInvalidAmount},
		{"Overflow", "Coffee", "1e400", ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService()
			_, err := s.Submit("Tea", "2")
			require.NoError(t, err)

			_, err = s.Submit(tt.desc, tt.amount)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, s.List(), 1)
			assert.Equal(t, models.Form{Desc: tt.desc, Amount: tt.amount}, s.Form())
		})
	}
}

func TestListNewestFirst(t *testing.T) {
	s := NewService()
	for _, desc := range []string{"first", "second", "third"} {
		_, err := s.Submit(desc, "1")
		require.NoError(t, err)
	}

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Desc)
	assert.Equal(t, "first", list[2].Desc)

	// callers get a copy
	list[0].Desc = "changed"
	assert.Equal(t, "third", s.List()[0].Desc)
}

func TestLastIDEmpty(t *testing.T) {
	_, ok := NewService().LastID()
	assert.False(t, ok)
}
