// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ironladytech/onboarding/apps/di"
	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/candidate"
	"github.com/ironladytech/onboarding/core/step"
	"github.com/ironladytech/onboarding/core/template"
	"github.com/ironladytech/onboarding/core/user"
	calendarsvc "github.com/ironladytech/onboarding/services/calendar"
	emailsvc "github.com/ironladytech/onboarding/services/email"
	logsvc "github.com/ironladytech/onboarding/services/logger"
	"github.com/ironladytech/onboarding/storage/database"
)

const (
	Actor    = "tester"
	Password = "Sup3r-Secr3t!"
)

// Env is an in-memory application with recording outbound services.
type Env struct {
	*di.Container
	MailMock     *emailsvc.ConsoleServiceMock
	CalendarMock *calendarsvc.ConsoleService
}

func NewEnv(t *testing.T) *Env {
	t.Helper()
	conf := core.NewTestConfig()
	logger := logsvc.NopLogger{}
	mailMock := emailsvc.NewConsoleServiceMock(conf, logger)
	calMock := calendarsvc.NewConsoleServiceMock(conf, logger)

	c, err := di.New(context.Background(), conf, di.Options{Logger: logger, Mail: mailMock, Calendar: calMock})
	if err != nil {
		t.Fatalf("di.New() failed: %v", err)
	}
	t.Cleanup(c.Close)
	return &Env{Container: c, MailMock: mailMock, CalendarMock: calMock}
}

// FreezeTime pins core.NowFunc until the test ends.
func FreezeTime(t *testing.T, now time.Time) {
	t.Helper()
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = orig })
}

func CreateUser(t *testing.T, svc *user.Service, uname, email string, roles []string) user.User {
	t.Helper()
	usr, err := svc.Upsert(context.Background(), uname, email, Password, roles)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCandidate(t *testing.T, svc *candidate.Service, name, email, department string, joining *core.Date) candidate.Candidate {
	t.Helper()
	c, err := svc.Create(context.Background(), candidate.NewCandidate{
		Name:                name,
		Email:               email,
		Department:          department,
		Position:            "Engineer",
		ExpectedJoiningDate: joining,
	}, Actor)
	if err != nil {
		t.Fatalf("CreateCandidate() failed: %v", err)
	}
	return c
}

func CreateTemplate(t *testing.T, svc *template.Service, name string, typ template.Type, subject, body string) template.EmailTemplate {
	t.Helper()
	nt := template.NewTemplate{Name: name, Type: typ, Subject: subject, Body: body}
	if typ == template.TypeCustom {
		custom := name
		nt.CustomEmailType = &custom
	}
	tmpl, err := svc.Create(context.Background(), nt)
	if err != nil {
		t.Fatalf("CreateTemplate() failed: %v", err)
	}
	return tmpl
}

// CreateStep appends an automatic step backed by a fresh template of the same type.
func CreateStep(t *testing.T, env *Env, department string, typ template.Type, offset int) step.Step {
	t.Helper()
	tmpl := CreateTemplate(t, env.Templates, string(typ)+" "+department, typ, "Hello {{candidateName}}", "Welcome to {{companyName}}")
	auto := true
	s, err := env.Steps.Create(context.Background(), department, step.NewStep{
		Type:            typ,
		Title:           string(typ),
		IsAuto:          &auto,
		DueDateOffset:   offset,
		EmailTemplateID: tmpl.ID,
	})
	if err != nil {
		t.Fatalf("CreateStep() failed: %v", err)
	}
	return s
}

func DatePtr(year int, month time.Month, day int) *core.Date {
	d := core.NewDate(year, month, day)
	return &d
}

// PrepareDB opens TEST_DATABASE_URL with a freshly migrated schema, skipping the test when unset.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.OpenURL(url)
	if err != nil {
		t.Fatalf("database.OpenURL() failed: %v", err)
	}
	if err = database.RunMigrations(db, "reset"); err != nil {
		t.Fatalf("resetting migrations failed: %v", err)
	}
	if err = database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
