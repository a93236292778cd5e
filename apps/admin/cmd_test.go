package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironladytech/onboarding/core/user"
	"github.com/ironladytech/onboarding/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Env, *bytes.Buffer) {
	t.Helper()
	env := testutil.NewEnv(t)
	out := new(bytes.Buffer)
	// the memory engine has no *sqlx.DB; migrations are mocked anyway
	return newCommandLine(&sqlx.DB{}, env.Users, env.Steps, out), env, out
}

func mockPassword(t *testing.T, pwd string, err error) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), err }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func checkErr(t *testing.T, tt cliTest, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.ErrorIs(t, err, tt.wantErr)
	case tt.wantErrStr != "":
		assert.EqualError(t, err, tt.wantErrStr)
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	var gotCommand string
	orig := runMigrationsFunc
	runMigrationsFunc = func(_ *sqlx.DB, command string, args ...string) error {
		gotCommand = command
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	t.Cleanup(func() { runMigrationsFunc = orig })

	tests := []cliTest{
		{name: "no command", args: []string{"migrate"}, wantErrStr: "requires at least 1 arg(s), only received 0"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "up-to", args: []string{"migrate", "up-to", "20240601"}},
		{name: "up-to without version", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: up-to VERSION"},
		{name: "down-to bad version", args: []string{"migrate", "down-to", "v1"}, wantErrStr: "version must be a number (got 'v1')"},
		{name: "unknown", args: []string{"migrate", "lol"}, wantErrStr: `"lol": no such command`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(tt.args))
		})
	}
	assert.Equal(t, "lol", gotCommand)

	t.Run("memory engine", func(t *testing.T) {
		cli.db = nil
		assert.ErrorIs(t, cli.run([]string{"migrate", "up"}), errNoDatabase)
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli, env, out := setup(t)
	ctx := context.Background()

	mockPassword(t, "", nil)
	tests := []cliTest{
		{name: "username or email required", args: []string{"adduser"}, wantErrStr: "username or email is required"},
		{name: "empty password", args: []string{"adduser", "-u", "priya"}, wantErr: errEmptyPassword},
		{name: "unknown flag", args: []string{"adduser", "--root"}, wantErrStr: "unknown flag: --root"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(tt.args))
		})
	}

	mockPassword(t, "", errors.New("not a terminal"))
	assert.EqualError(t, cli.run([]string{"adduser", "-u", "priya"}), "reading password: not a terminal")

	mockPassword(t, testutil.Password, nil)
	require.NoError(t, cli.run([]string{"adduser", "-u", "Priya", "-e", "priya@example.com", "--admin"}))
	assert.Contains(t, out.String(), "user priya saved")

	usr, err := env.Users.GetByUsernameOrEmail(ctx, "priya@example.com")
	require.NoError(t, err)
	assert.ElementsMatch(t, user.AllRoles, usr.Roles)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword(testutil.Password))

	// running again updates the same user
	mockPassword(t, "N3w-Passw0rd!", nil)
	require.NoError(t, cli.run([]string{"adduser", "-u", "priya", "--hr"}))
	usr, err = env.Users.GetByUsernameOrEmail(ctx, "priya")
	require.NoError(t, err)
	assert.ElementsMatch(t, user.HRRoles, usr.Roles)
	assert.NoError(t, usr.CheckPassword("N3w-Passw0rd!"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env, out := setup(t)
	testutil.CreateUser(t, env.Users, "priya", "priya@example.com", []string{user.RoleHR})

	mockPassword(t, "An0ther-Secret", nil)
	tests := []cliTest{
		{name: "username required", args: []string{"resetpassword"}, wantErrStr: `required flag(s) "username" not set`},
		{name: "unknown user", args: []string{"resetpassword", "-u", "ghost"}, wantErrStr: "user not found"},
		{name: "reset", args: []string{"resetpassword", "--username", "priya@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(tt.args))
		})
	}
	assert.Contains(t, out.String(), "password of priya reset")

	usr, err := env.Users.GetByUsernameOrEmail(context.Background(), "priya")
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("An0ther-Secret"))
}

func Test_commandLine_initSteps(t *testing.T) {
	cli, env, out := setup(t)

	tests := []cliTest{
		{name: "department required", args: []string{"initsteps"}, wantErrStr: "accepts 1 arg(s), received 0"},
		{name: "create", args: []string{"initsteps", "Finance"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(tt.args))
		})
	}
	assert.Contains(t, out.String(), " 1. ")

	steps, err := env.Steps.List(context.Background(), "Finance")
	require.NoError(t, err)
	assert.NotEmpty(t, steps)

	err = cli.run([]string{"initsteps", "Finance"})
	assert.Error(t, err, "a department is initialized once")
}
