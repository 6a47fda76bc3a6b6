package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sender interface {
	Send() error
}

func TestValidate(t *testing.T) {
	var nilMap map[string]string
	var nilIface sender

	tests := []struct {
		name    string
		deps    []any
		wantErr bool
	}{
		{
			name: "all present",
			deps: []any{"url", 5, map[string]string{"a": "b"}, &struct{}{}},
		},
		{
			name:    "nil dep",
			deps:    []any{"url", nil},
			wantErr: true,
		},
		{
			name:    "nil typed interface",
			deps:    []any{nilIface},
			wantErr: true,
		},
		{
			name:    "nil map",
			deps:    []any{nilMap},
			wantErr: true,
		},
		{
			name:    "empty string",
			deps:    []any{""},
			wantErr: true,
		},
		{
			name:    "nil pointer",
			deps:    []any{(*struct{})(nil)},
			wantErr: true,
		},
		{
			name: "no deps",
			deps: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate("component", tt.deps...)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "component")
				return
			}
			require.NoError(t, err)
		})
	}
}
