package emailsvc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironladytech/onboarding/core"
	logsvc "github.com/ironladytech/onboarding/services/logger"
)

func newMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:          []mail.Address{{Name: "Asha Rao", Address: "asha@example.com"}},
		Cc:          []mail.Address{{Address: "manager@example.com"}},
		ReplyTo:     &mail.Address{Name: "HR", Address: "hr@example.com"},
		Subject:     "Welcome aboard",
		TextContent: "Hi Asha,\n\nSee you on Monday.",
		Branding:    core.Branding{CompanyName: "Acme"},
	}
}

func TestConsoleService_format(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewConsoleService(conf, logsvc.NopLogger{})

	msg := newMessage()
	require.NoError(t, msg.Render())
	msg.Attach([]byte("%PDF-1.4"), "handbook.pdf", "application/pdf")

	body, err := svc.format(*msg)
	require.NoError(t, err)
	for _, want := range []string{
		"From: \"HR Team\" <noreply@test.local>\r\n",
		"Subject: [Onboarding] Welcome aboard\r\n",
		"To: \"Asha Rao\" <asha@example.com>\r\n",
		"CC: <manager@example.com>\r\n",
		"Reply-To: \"HR\" <hr@example.com>\r\n",
		"Content-Type: multipart/mixed; boundary=",
		"Content-Type: text/html; charset=utf-8",
		"Content-Disposition: attachment; filename=handbook.pdf",
	} {
		assert.Contains(t, body, want)
	}
}

func TestConsoleService_Send(t *testing.T) {
	svc := NewConsoleServiceMock(core.NewTestConfig(), logsvc.NopLogger{})

	id, err := svc.Send(context.Background(), newMessage())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = svc.Send(context.Background(), &core.EmailMessage{Subject: "nobody", TextContent: "x"})
	assert.EqualError(t, err, "email has no recipient")

	svc.FailFor["asha@example.com"] = errors.New("mailbox unavailable")
	_, err = svc.Send(context.Background(), newMessage())
	assert.EqualError(t, err, "mailbox unavailable")

	svc.SendMessages(&core.EmailMessage{To: []mail.Address{{Address: "ravi@example.com"}}, Subject: "Hi", TextContent: "Hello"})
	sent := svc.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "ravi@example.com", sent[1].To[0].Address)
	assert.Contains(t, sent[1].HTMLContent, "Hello", "the layout is rendered before sending")
}

func TestSendgridService_Send(t *testing.T) {
	var got struct {
		Personalizations []struct {
			Subject string `json:"subject"`
			To      []struct {
				Email string `json:"email"`
			} `json:"to"`
		} `json:"personalizations"`
		From struct {
			Email string `json:"email"`
		} `json:"from"`
		Content []struct {
			Type string `json:"type"`
		} `json:"content"`
	}
	var authHeader string
	status := http.StatusAccepted

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set(messageIDHeader, "sg-msg-1")
		w.WriteHeader(status)
		if status >= http.StatusBadRequest {
			_, _ = io.WriteString(w, `{"errors":[{"message":"bad"}]}`)
		}
	}))
	defer ts.Close()

	origHost := host
	host = ts.URL
	t.Cleanup(func() { host = origHost })

	conf := core.NewTestConfig()
	conf.SendgridApiKey = "SG.test"
	svc := NewSendgridService(conf, logsvc.NopLogger{})

	id, err := svc.Send(context.Background(), newMessage())
	require.NoError(t, err)
	assert.Equal(t, "sg-msg-1", id)
	assert.Equal(t, "Bearer SG.test", authHeader)
	require.Len(t, got.Personalizations, 1)
	assert.Equal(t, "[Onboarding] Welcome aboard", got.Personalizations[0].Subject)
	assert.Equal(t, "asha@example.com", got.Personalizations[0].To[0].Email)
	assert.Equal(t, "noreply@test.local", got.From.Email)
	require.Len(t, got.Content, 2)
	assert.Equal(t, "text/html", got.Content[1].Type)

	status = http.StatusBadRequest
	_, err = svc.Send(context.Background(), newMessage())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "sendgrid status 400"))
}
