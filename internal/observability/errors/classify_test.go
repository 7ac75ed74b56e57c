package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/target/mmk-outbound/internal/errors"
)

type codedErr struct{ code string }

func (e *codedErr) Error() string     { return "coded: " + e.code }
func (e *codedErr) ErrorCode() string { return e.code }

func TestClassify(t *testing.T) {
	assert.Empty(t, Classify(nil))
	assert.Equal(t, "timeout", Classify(fmt.Errorf("send: %w", context.DeadlineExceeded)))
	assert.Equal(t, "canceled", Classify(context.Canceled))
	assert.Equal(t, "provider_throttled", Classify(fmt.Errorf("wrap: %w", &codedErr{code: "provider_throttled"})))
	assert.Equal(t, "conflict", Classify(apperrors.Conflict("claim lost")))
	assert.Equal(t, "errors_errorstring", Classify(goerrors.New("boom")))
}
