package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestIsTrusted(t *testing.T) {
	c := NewChecker([]string{" PayPal-Support.net ", "", "corp.example."}, zap.NewNop())

	assert.True(t, c.IsTrusted("billing@paypal-support.net"))
	assert.True(t, c.IsTrusted("Billing <billing@PAYPAL-SUPPORT.NET>"))
	assert.True(t, c.IsTrusted("ops@mail.corp.example"))
	assert.False(t, c.IsTrusted("ops@notcorp.example"))
	assert.False(t, c.IsTrusted("no address"))
}

func TestEmptyChecker(t *testing.T) {
	assert.False(t, NewChecker(nil, nil).IsTrusted("a@example.com"))
}
