package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	args  [][]string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}
func (f *fakeExec) Refresh(ctx context.Context) error {
	f.calls = append(f.calls, "refresh")
	return nil
}
func (f *fakeExec) Save(ctx context.Context) error { f.calls = append(f.calls, "save"); return nil }
func (f *fakeExec) List(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "list")
	f.args = append(f.args, args)
	return nil
}
func (f *fakeExec) Search(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "search")
	f.args = append(f.args, args)
	return nil
}
func (f *fakeExec) Fetch(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "fetch")
	f.args = append(f.args, args)
	return nil
}
func (f *fakeExec) Status(ctx context.Context) error {
	f.calls = append(f.calls, "status")
	return nil
}

func silencePrintln(t *testing.T) *[]string {
	t.Helper()
	var out []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		out = append(out, strings.TrimSpace(fmt.Sprintln(a...)))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &out
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	silencePrintln(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"login",
		"help",
		"list listings",
		"s listings red barn",
		"fetch img-1",
		"refresh",
		"save",
		"status",
		"foobar",
		"logout",
		"exit",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewScanner(input))

	assert.Equal(t, []string{"login", "list", "search", "fetch", "refresh", "save", "status", "logout"}, exec.calls)
	assert.Equal(t, [][]string{{"listings"}, {"listings", "red", "barn"}, {"img-1"}}, exec.args)
}

func TestRunREPL_GuardsSignedOutCommands(t *testing.T) {
	out := silencePrintln(t)

	input := strings.NewReader("list listings\nrefresh\nstatus\nquit\n")
	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewScanner(input))

	assert.Equal(t, []string{"status"}, exec.calls)
	assert.Contains(t, *out, "Not logged in")
	assert.Contains(t, *out, "Bye!")
}

func TestRunREPL_EOFExits(t *testing.T) {
	silencePrintln(t)

	exec := &fakeExec{loggedIn: true}
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewScanner(strings.NewReader("\n\n")))

	assert.Empty(t, exec.calls)
}
