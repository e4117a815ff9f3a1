package invite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCodeValid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		code Code
		want bool
	}{
		{
			name: "unexpired and under budget",
			code: Code{ExpiresAt: now.Add(time.Hour), MaxCalls: 10, CallCount: 3},
			want: true,
		},
		{
			name: "expired",
			code: Code{ExpiresAt: now.Add(-time.Second), MaxCalls: 10, CallCount: 0},
			want: false,
		},
		{
			name: "expires exactly now",
			code: Code{ExpiresAt: now, MaxCalls: 10, CallCount: 0},
			want: false,
		},
		{
			name: "budget exhausted",
			code: Code{ExpiresAt: now.Add(time.Hour), MaxCalls: 10, CallCount: 10},
			want: false,
		},
		{
			name: "last call remaining",
			code: Code{ExpiresAt: now.Add(time.Hour), MaxCalls: 10, CallCount: 9},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.Valid(now))
		})
	}
}
