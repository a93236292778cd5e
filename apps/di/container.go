// Package di builds the object graph shared by the api server and the admin CLI.
package di

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/activity"
	"github.com/ironladytech/onboarding/core/candidate"
	"github.com/ironladytech/onboarding/core/dashboard"
	"github.com/ironladytech/onboarding/core/email"
	"github.com/ironladytech/onboarding/core/event"
	"github.com/ironladytech/onboarding/core/schedule"
	"github.com/ironladytech/onboarding/core/settings"
	"github.com/ironladytech/onboarding/core/step"
	"github.com/ironladytech/onboarding/core/task"
	"github.com/ironladytech/onboarding/core/template"
	"github.com/ironladytech/onboarding/core/user"
	calendarsvc "github.com/ironladytech/onboarding/services/calendar"
	emailsvc "github.com/ironladytech/onboarding/services/email"
	logsvc "github.com/ironladytech/onboarding/services/logger"
	"github.com/ironladytech/onboarding/storage/database"
	inmem "github.com/ironladytech/onboarding/storage/database/inmem"
	sqlxrepos "github.com/ironladytech/onboarding/storage/database/sqlx"
)

const engineMemory = "memory"

type repositories struct {
	users      user.Repository
	candidates candidate.Repository
	activity   activity.Repository
	settings   settings.Repository
	templates  template.Repository
	steps      step.Repository
	events     event.Repository
	emails     email.Repository
	tasks      task.Repository
}

// Options overrides the outbound services; zero values pick the defaults for the config.
type Options struct {
	Logger   core.Logger
	Mail     core.EmailService
	Calendar core.CalendarService

	SkipMigrations bool // the admin CLI runs them on demand
}

type Container struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *sqlx.DB // nil with the memory engine
	Validate   *validator.Validate
	Translator ut.Translator
	Mail       core.EmailService
	Calendar   core.CalendarService

	Users      *user.Service
	Candidates *candidate.Service
	Activity   *activity.Service
	Settings   *settings.Service
	Templates  *template.Service
	Steps      *step.Service
	Events     *event.Service
	Emails     *email.Service
	Tasks      *task.Service
	Schedule   *schedule.Service
	Dashboard  *dashboard.Service
}

func NewLogger(conf *core.Config) core.Logger {
	std := slog.New(logsvc.NewConsoleHandler(os.Stdout, conf.Debug))
	return logsvc.NewRollbarLogger(std, conf)
}

func NewValidation() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	candidate.InitValidators(validate, translator)
	template.InitValidators(validate, translator)
	step.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	return validate, translator
}

func newMailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// OpenDB creates, opens and (unless skipped) migrates the postgres database.
func OpenDB(ctx context.Context, conf *core.Config, skipMigrations bool) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if skipMigrations {
		return db, nil
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrating database")
	}
	return db, nil
}

func memoryRepositories() repositories {
	db := inmem.Open()
	return repositories{
		users:      inmem.NewUserRepository(db),
		candidates: inmem.NewCandidateRepository(db),
		activity:   inmem.NewActivityRepository(db),
		settings:   inmem.NewSettingsRepository(db),
		templates:  inmem.NewTemplateRepository(db),
		steps:      inmem.NewStepRepository(db),
		events:     inmem.NewEventRepository(db),
		emails:     inmem.NewEmailRepository(db),
		tasks:      inmem.NewTaskRepository(db),
	}
}

func sqlRepositories(db *sqlx.DB) repositories {
	return repositories{
		users:      sqlxrepos.NewUserRepository(db),
		candidates: sqlxrepos.NewCandidateRepository(db),
		activity:   sqlxrepos.NewActivityRepository(db),
		settings:   sqlxrepos.NewSettingsRepository(db),
		templates:  sqlxrepos.NewTemplateRepository(db),
		steps:      sqlxrepos.NewStepRepository(db),
		events:     sqlxrepos.NewEventRepository(db),
		emails:     sqlxrepos.NewEmailRepository(db),
		tasks:      sqlxrepos.NewTaskRepository(db),
	}
}

// New wires every service. With the postgres engine the database is created and migrated first.
func New(ctx context.Context, conf *core.Config, opts Options) (*Container, error) {
	c := &Container{Conf: conf, Logger: opts.Logger, Mail: opts.Mail, Calendar: opts.Calendar}
	if c.Logger == nil {
		c.Logger = NewLogger(conf)
	}
	if c.Mail == nil {
		c.Mail = newMailService(conf, c.Logger)
	}
	if c.Calendar == nil {
		c.Calendar = calendarsvc.NewConsoleService(conf, c.Logger)
	}
	c.Validate, c.Translator = NewValidation()

	var repos repositories
	switch conf.Database.Engine {
	case engineMemory:
		repos = memoryRepositories()
	case "", "postgres":
		db, err := OpenDB(ctx, conf, opts.SkipMigrations)
		if err != nil {
			return nil, err
		}
		c.DB = db
		repos = sqlRepositories(db)
	default:
		return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}

	resolver, err := schedule.NewResolver(conf)
	if err != nil {
		c.Close()
		return nil, errors.Wrap(err, "building step resolver")
	}

	c.Users = user.NewService(repos.users, c.Mail, c.Validate, conf)
	c.Activity = activity.NewService(repos.activity, c.Logger)
	c.Settings = settings.NewService(repos.settings, c.Validate, conf)
	c.Candidates = candidate.NewService(repos.candidates, c.Activity, c.Validate)
	c.Templates = template.NewService(repos.templates, repos.candidates, c.Settings, c.Validate, conf)
	c.Steps = step.NewService(repos.steps, c.Templates, c.Validate)
	c.Events = event.NewService(repos.events, c.Calendar, c.Activity, c.Validate)
	c.Emails = email.NewService(repos.emails, c.Mail, c.Activity, c.Validate, c.Logger)
	c.Tasks = task.NewService(repos.tasks, repos.candidates, c.Activity, c.Validate)
	c.Schedule = schedule.NewService(schedule.Deps{
		Candidates: c.Candidates,
		Steps:      c.Steps,
		Templates:  c.Templates,
		Settings:   c.Settings,
		Events:     c.Events,
		Emails:     c.Emails,
		Activity:   c.Activity,
		Resolver:   resolver,
		Validate:   c.Validate,
		Logger:     c.Logger,
	})
	c.Dashboard = dashboard.NewService(c.Candidates, c.Events, c.Tasks, c.Activity)
	return c, nil
}

func (c *Container) Close() {
	if c.DB == nil {
		return
	}
	if err := c.DB.Close(); err != nil {
		c.Logger.Error("closing database", err)
	}
}
