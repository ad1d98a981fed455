package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/dmitrijs2005/recordbase/internal/shared"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts the user for credentials and authenticates against the
// backend.
//
// After a successful login the user is offered a passphrase to seal the
// persisted session with; an empty passphrase stores the tokens in plain
// form. Persistence failures are logged but do not fail the login itself.
// The password byte slice is securely wiped before returning.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(password)

	tokens, err := a.client.Login(ctx, email, string(password))
	if err != nil {
		log.Printf("Login unsuccessful: %s", err.Error())
		return err
	}
	fmt.Fprintln(a.out, "Success!")

	// Persistence is best-effort: the session is already established, so a
	// failed prompt or save is logged, never returned.
	pass, err := getPassword(a.out, "Passphrase to protect the stored session (empty to skip): ")
	if err != nil {
		log.Printf("could not read passphrase, session not persisted: %s", err.Error())
		return nil
	}
	defer shared.WipeByteArray(pass)
	if len(pass) == 0 {
		pass = nil
	}

	if err := a.store.Save(ctx, tokens, pass); err != nil {
		log.Printf("could not persist session: %s", err.Error())
	}

	return nil
}

// Logout drops the session on the server, in memory and on disk. The
// in-memory session is cleared even when the server call fails.
func (a *App) Logout(ctx context.Context) error {
	a.client.Logout(ctx)
	if err := a.store.Clear(ctx); err != nil {
		log.Printf("could not clear stored session: %s", err.Error())
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Whoami prints the identity carried by the current auth token.
func (a *App) Whoami(ctx context.Context) error {
	user := a.client.User()
	if user == nil {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	fmt.Fprintf(a.out, "id: %s\nemail: %s\n", user.ID, user.Email)
	return nil
}
