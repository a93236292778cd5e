package core

import (
	"bytes"
	"context"
	"encoding/base64"
	htmltmpl "html/template"
	"net/http"
	"net/mail"
	"strings"
	"sync"

	"github.com/pkg/errors"

	appfs "github.com/ironladytech/onboarding/fs"
)

var (
	layout     *htmltmpl.Template
	layoutErr  error
	layoutInit sync.Once
)

type (
	Attachment struct {
		Content     *bytes.Buffer // base64 encoded
		ContentType string
		Filename    string
	}

	// Branding is the data shared by every outgoing email layout.
	Branding struct {
		CompanyName  string
		PrimaryColor string
		SiteURL      string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		ReplyTo     *mail.Address
		Subject     string
		Attachments []Attachment
		Branding    Branding

		TextContent string // text/plain body, wrapped into the HTML layout on Render
		HTMLContent string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// Send delivers msg synchronously and returns the provider's tracking ID.
		Send(ctx context.Context, msg *EmailMessage) (string, error)
		// SendMessages sends messages concurrently; failures are logged, not returned.
		SendMessages(messages ...*EmailMessage)
	}
)

type layoutData struct {
	Branding
	Subject    string
	Paragraphs [][]string
}

func parseLayout() {
	layout, layoutErr = htmltmpl.ParseFS(appfs.FS, "templates/email/_base.gohtml")
}

// Render fills HTMLContent from TextContent using the embedded layout, unless already set.
func (m *EmailMessage) Render() error {
	if m.HTMLContent != "" || m.TextContent == "" {
		return nil
	}
	layoutInit.Do(parseLayout)
	if layoutErr != nil {
		return errors.Wrap(layoutErr, "parsing email layout")
	}

	data := layoutData{Branding: m.Branding, Subject: m.Subject}
	for _, p := range strings.Split(strings.ReplaceAll(m.TextContent, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			data.Paragraphs = append(data.Paragraphs, strings.Split(p, "\n"))
		}
	}

	var buff bytes.Buffer
	if err := layout.Execute(&buff, data); err != nil {
		return errors.Wrap(err, "rendering email layout")
	}
	m.HTMLContent = buff.String()
	return nil
}

// Attach adds content as a base64 encoded attachment.
func (m *EmailMessage) Attach(content []byte, filename string, ct ...string) {
	at := Attachment{Filename: filename, Content: new(bytes.Buffer)}

	encoder := base64.NewEncoder(base64.StdEncoding, at.Content)
	_, _ = encoder.Write(content)
	_ = encoder.Close()

	if len(ct) > 0 && ct[0] != "" {
		at.ContentType = ct[0]
	} else {
		at.ContentType = http.DetectContentType(content)
	}
	m.Attachments = append(m.Attachments, at)
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }
