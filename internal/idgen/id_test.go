package idgen

import (
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := New()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestNew_TimeOrdered(t *testing.T) {
	ids := make([]string, 500)
	for i := range ids {
		ids[i] = New()
	}

	assert.True(t, sort.StringsAreSorted(ids), "ids generated in sequence must sort in generation order")
}

func TestTime(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := New()
	after := time.Now().Add(time.Second)

	at, err := Time(id)
	require.NoError(t, err)
	assert.True(t, at.After(before) && at.Before(after), "id time %s outside [%s, %s]", at, before, after)
}

func TestTime_KnownID(t *testing.T) {
	at, err := Time("017f22e2-79b0-7cc3-98c4-dc0c0c07398f")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 2, 22, 19, 22, 22, 0, time.UTC), at)
}

func TestTime_Errors(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{name: "not a uuid", id: "job-1"},
		{name: "random uuid", id: uuid.NewString()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Time(tt.id)
			assert.Error(t, err)
		})
	}
}
