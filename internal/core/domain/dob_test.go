package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDOB(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "month first with dashes", input: "04-21-1990", want: "1990-04-21"},
		{name: "day first with dashes", input: "21-04-1990", want: "1990-04-21"},
		{name: "iso", input: "1990-04-21", want: "1990-04-21"},
		{name: "month first with slashes", input: "04/21/1990", want: "1990-04-21"},
		{name: "day first with slashes", input: "21/04/1990", want: "1990-04-21"},
		{name: "iso with slashes", input: "1990/04/21", want: "1990-04-21"},
		{name: "ambiguous prefers month first", input: "02-03-1985", want: "1985-02-03"},
		{name: "surrounding whitespace", input: " 1990-04-21 ", want: "1990-04-21"},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "not a date", wantErr: true},
		{name: "impossible date", input: "13-32-1990", wantErr: true},
		{name: "partial", input: "04-1990", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDOB(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusValidity(t *testing.T) {
	for _, s := range []BatchStatus{
		BatchStatusUploaded, BatchStatusPreprocessing, BatchStatusPending,
		BatchStatusProcessing, BatchStatusComplete, BatchStatusDiscarded,
	} {
		assert.True(t, s.IsValid(), "batch status %q", s)
	}
	assert.False(t, BatchStatus("archived").IsValid())

	for _, s := range []PaymentStatus{PaymentStatusPending, PaymentStatusComplete, PaymentStatusFailed} {
		assert.True(t, s.IsValid(), "payment status %q", s)
	}
	assert.False(t, PaymentStatus("settled").IsValid())
}
