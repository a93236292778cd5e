package logsvc

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/user"
)

func TestRollbarLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	std := slog.New(NewConsoleHandler(buf, false))
	logger := NewRollbarLogger(std, core.NewTestConfig())

	logger.Debug("hidden")
	logger.Error("sending email", errors.New("smtp down"), map[string]interface{}{"to": "asha@example.com", "attempt": 2}, user.User{ID: "u1"})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "ERR sending email")
	assert.Contains(t, out, `err="smtp down"`)
	assert.NotContains(t, out, "rollbar_test.go", "no stack trace in console output")
	assert.NotContains(t, out, "\x1b[", "no colors outside a terminal")
	assert.Contains(t, out, "attempt=2 to=asha@example.com", "map keys are sorted")
	assert.Contains(t, out, "user=u1")
}

func Test_attrs(t *testing.T) {
	got := attrs([]interface{}{"plain", user.User{ID: "u2"}, errors.Wrap(errors.New("refused"), "dialing")})
	if assert.Len(t, got, 3) {
		extra := got[0].(slog.Attr)
		assert.Equal(t, "extra", extra.Key)
		assert.Equal(t, "plain", extra.Value.String())
		assert.Equal(t, "u2", got[1].(slog.Attr).Value.String())
		assert.Equal(t, "dialing: refused", fmt.Sprintf("%+v", got[2].(slog.Attr).Value.Resolve().Any()))
	}
}
