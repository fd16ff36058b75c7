package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeValidator(t *testing.T) {
	v, err := newEnvelopeValidator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		want    envelope
		wantErr bool
	}{
		{name: "frame", input: `{"type":"frame","data":"QUJD"}`, want: envelope{Type: "frame", Data: "QUJD"}},
		{name: "reset", input: `{"type":"reset"}`, want: envelope{Type: "reset"}},
		{name: "check with extra fields", input: `{"type":"check","id":7}`, want: envelope{Type: "check"}},
		{name: "frame without data", input: `{"type":"frame"}`, wantErr: true},
		{name: "numeric data", input: `{"type":"frame","data":1}`, wantErr: true},
		{name: "unknown type", input: `{"type":"ping"}`, wantErr: true},
		{name: "missing type", input: `{"data":"QUJD"}`, wantErr: true},
		{name: "array", input: `[1,2]`, wantErr: true},
		{name: "not json", input: `frame`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.parse([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
