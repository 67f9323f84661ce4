// Command pj is a CLI client for the Portal Jurídico service.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/vgents/portaljuridico/internal/client"
	"github.com/vgents/portaljuridico/internal/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// dialExtra is appended to every dial; tests point it at an in-memory listener.
var dialExtra []grpc.DialOption

var errUsage = errors.New("usage")

const usageText = `pj CLI
Usage:
  pj [--addr HOST:PORT] [--cacert file | --insecure | --plaintext] <cmd> [flags]

Commands:
  version
  login      -e <email> [-p <password>]        (saves the session; password read from stdin when omitted)
  logout
  whoami
  docs       [--text --tipo --categoria --number --status --from --to --offset --limit]
  get        --id <id> [--pdf out.pdf]
  add        --title <t> [--sigilo interno|grupo|pessoal --groups 1,2 --users 3 --pdf in.pdf ...]
  edit       --id <id> [any add flag]
  revoke     --id <id> [-p <password>]
  history    [--user <id> | --tipo <action>] [--limit n]
  groups
  group-add  --nome <n> [--members 1,2] [-p <password>]
  member-add --group <id> --user <id> [-p <password>]
  member-rm  --group <id> --user <id> [-p <password>]
  terms      --kind assunto|categoria
  term-add   --kind assunto|categoria --nome <n>
  watch                                        (streams document events until interrupted)
  prefs      [--dark on|off] [--font +|-|0]
`

// app carries the global options and the session for one invocation.
type app struct {
	addr    string
	opts    client.DialOptions
	timeout time.Duration
	sess    *session.Store
	in      *bufio.Reader
	out     io.Writer
}

// main dispatches subcommands and maps errors to exit codes.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	stop()
	if err != nil {
		fail(err)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := pflag.NewFlagSet("pj", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	addr := fs.String("addr", "", "server address (default: the one used at login, else localhost:8443)")
	caPath := fs.String("cacert", "", "CA cert (PEM)")
	skipVerify := fs.Bool("insecure", false, "skip cert verify (dev)")
	plaintext := fs.Bool("plaintext", false, "connect without TLS (dev)")
	timeout := fs.Duration("timeout", 30*time.Second, "per-command RPC timeout")
	sessPath := fs.String("session", session.DefaultPath(), "session file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 {
		return errUsage
	}

	sess, err := session.Open(*sessPath)
	if err != nil {
		return err
	}
	if sess.Discarded() {
		fmt.Fprintln(os.Stderr, "warning: unreadable session discarded; please log in again")
	}

	a := &app{
		addr:    *addr,
		opts:    client.DialOptions{CACert: *caPath, SkipVerify: *skipVerify, Plaintext: *plaintext},
		timeout: *timeout,
		sess:    sess,
		in:      bufio.NewReader(stdin),
		out:     stdout,
	}
	if a.addr == "" {
		a.addr = sess.Snapshot().Server
	}
	if a.addr == "" {
		a.addr = "localhost:8443"
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	handlers := map[string]func(context.Context, []string) error{
		"version":    a.cmdVersion,
		"login":      a.cmdLogin,
		"logout":     a.cmdLogout,
		"whoami":     a.cmdWhoami,
		"docs":       a.cmdDocs,
		"get":        a.cmdGet,
		"add":        a.cmdAdd,
		"edit":       a.cmdEdit,
		"revoke":     a.cmdRevoke,
		"history":    a.cmdHistory,
		"groups":     a.cmdGroups,
		"group-add":  a.cmdGroupAdd,
		"member-add": a.cmdMemberAdd,
		"member-rm":  a.cmdMemberRm,
		"terms":      a.cmdTerms,
		"term-add":   a.cmdTermAdd,
		"watch":      a.cmdWatch,
		"prefs":      a.cmdPrefs,
	}
	h, ok := handlers[cmd]
	if !ok {
		return errUsage
	}
	return h(ctx, rest)
}

// ---- connection ----

// connect dials the server with the stored token when authed is set.
func (a *app) connect(authed bool) (*client.Client, func(), error) {
	o := a.opts
	if authed {
		tok, err := a.sess.Token()
		if err != nil {
			return nil, nil, err
		}
		o.Token = tok
	}
	cc, err := client.Dial(a.addr, o, dialExtra...)
	if err != nil {
		return nil, nil, err
	}
	return client.New(cc), func() { _ = cc.Close() }, nil
}

func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.timeout)
}

// ---- utils ----

func newFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%s: %w", fs.Name(), err)
	}
	return nil
}

// password returns flagVal or reads one line from stdin.
func (a *app) password(flagVal string) (string, error) {
	if flagVal != "" {
		return flagVal, nil
	}
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password required (-p or stdin)")
	}
	return pw, nil
}

func readAll(p string, stdin io.Reader) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(p)
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	if errors.Is(err, errUsage) {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
