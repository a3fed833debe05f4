package contract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Errorf(ErrConversion, cause, "RFC %s", "B2")

	assert.Equal(t, "conversion failed: RFC B2: exit status 1", err.Error())
	assert.ErrorIs(t, err, ErrConversion)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrIO)

	bare := Errorf(ErrValidation, nil, "")
	assert.Equal(t, "validation failed", bare.Error())
	assert.ErrorIs(t, bare, ErrValidation)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, CodeOK},
		{"validation", Errorf(ErrValidation, nil, "rfc"), CodeValidation},
		{"wrapped template", fmt.Errorf("batch: %w", Errorf(ErrTemplateLoad, os.ErrNotExist, "x.docx")), CodeTemplate},
		{"conversion timeout", Errorf(ErrConversion, context.DeadlineExceeded, "B2"), CodeConversion},
		{"deadline", context.DeadlineExceeded, CodeCancel},
		{"canceled", fmt.Errorf("run: %w", context.Canceled), CodeCancel},
		{"ledger", Errorf(ErrLedgerWrite, nil, ""), CodeLedger},
		{"unauthorized", Errorf(ErrUnauthorized, nil, ""), CodeUnauthorized},
		{"path", Errorf(ErrPathInvalid, nil, "../x"), CodeIO},
		{"path error", &os.PathError{Op: "open", Path: "x", Err: os.ErrPermission}, CodeIO},
		{"unknown", errors.New("boom"), CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
