package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vgents/portaljuridico/internal/session"
)

func (a *app) cmdVersion(context.Context, []string) error {
	fmt.Fprintf(a.out, "pj %s (%s)\n", version, buildDate)
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := newFlags("login")
	email := fs.StringP("email", "e", "", "e-mail")
	pw := fs.StringP("password", "p", "", "password (stdin when omitted)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("need -e")
	}
	password, err := a.password(*pw)
	if err != nil {
		return err
	}

	cli, done, err := a.connect(false)
	if err != nil {
		return err
	}
	defer done()
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	res, err := cli.Login(ctx, *email, password)
	if err != nil {
		return err
	}
	u := session.User{ID: res.User.ID, Nome: res.User.Nome, Email: res.User.Email, Perfil: string(res.User.Profile)}
	if err := a.sess.Login(a.addr, res.AccessToken, res.ExpiresAt, u); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "ok: %s (%s)\n", u.Nome, u.Perfil)
	return nil
}

func (a *app) cmdLogout(context.Context, []string) error {
	if err := a.sess.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}

func (a *app) cmdWhoami(context.Context, []string) error {
	if !a.sess.Authenticated() {
		return session.ErrNotLoggedIn
	}
	st := a.sess.Snapshot()
	printJSON(a.out, struct {
		*session.User
		Server    string `json:"server"`
		ExpiresAt string `json:"expires_at"`
	}{st.User, st.Server, st.ExpiresAt.Format(time.RFC3339)})
	return nil
}

func (a *app) cmdPrefs(_ context.Context, args []string) error {
	fs := newFlags("prefs")
	dark := fs.String("dark", "", "on|off")
	font := fs.String("font", "", "+ (bigger), - (smaller) or 0 (reset)")
	if err := parse(fs, args); err != nil {
		return err
	}

	switch *dark {
	case "":
	case "on", "off":
		if err := a.sess.SetDarkMode(*dark == "on"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("--dark: want on or off, got %q", *dark)
	}

	var err error
	switch *font {
	case "":
	case "+":
		err = a.sess.IncreaseFont()
	case "-":
		err = a.sess.DecreaseFont()
	case "0":
		err = a.sess.ResetFont()
	default:
		return fmt.Errorf("--font: want +, - or 0, got %q", *font)
	}
	if err != nil {
		return err
	}

	printJSON(a.out, a.sess.Snapshot().Prefs)
	return nil
}
