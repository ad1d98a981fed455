package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/recordbase"
	"github.com/dmitrijs2005/recordbase/internal/cli/config"
	"github.com/dmitrijs2005/recordbase/internal/filex"
	"github.com/dmitrijs2005/recordbase/internal/logging"
	"github.com/dmitrijs2005/recordbase/internal/shared"
	"github.com/dmitrijs2005/recordbase/internal/tokenstore"
)

// App wires the record client, the persisted session store and the
// interactive prompt helpers together.
type App struct {
	config *config.Config
	client *recordbase.Client
	store  *tokenstore.Store
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	dir, err := filex.EnsureDataDir(".recordbase")
	if err != nil {
		return nil, err
	}

	store, err := tokenstore.Open(ctx, filepath.Join(dir, c.SessionDB))
	if err != nil {
		log.Printf("error initializing session store: %s", err.Error())
		return nil, err
	}

	reader := bufio.NewReader(os.Stdin)

	tokens, err := loadStoredSession(ctx, store, reader, os.Stdout)
	if err != nil {
		// A stale or undecryptable session is not fatal; start anonymous.
		log.Printf("stored session unavailable: %s", err.Error())
		tokens = nil
	}

	client, err := recordbase.NewClientWithOptions(c.Site, recordbase.Options{
		Tokens:     tokens,
		HTTPClient: &http.Client{Timeout: c.RequestTimeout},
		Logger:     logging.NewSlogLogger(slog.Default()),
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &App{config: c, client: client, store: store, reader: reader, out: os.Stdout}, nil
}

// loadStoredSession restores tokens persisted by a previous login, prompting
// for the passphrase if the session was saved sealed. A missing session is
// returned as (nil, nil).
func loadStoredSession(ctx context.Context, store *tokenstore.Store, reader *bufio.Reader, out io.Writer) (*recordbase.Tokens, error) {
	tokens, err := store.Load(ctx, nil)
	if errors.Is(err, tokenstore.ErrPassphraseRequired) {
		pass, perr := GetPassword(out, "Enter session passphrase: ")
		if perr != nil {
			return nil, perr
		}
		defer shared.WipeByteArray(pass)
		tokens, err = store.Load(ctx, pass)
	}
	if errors.Is(err, tokenstore.ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.store.Close()
	runREPL(ctx, a, a.statusLine, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.client.Tokens() != nil
}

// statusLine names the current identity for the REPL prompt.
func (a *App) statusLine() string {
	if user := a.client.User(); user != nil {
		return user.Email
	}
	return "anonymous"
}
