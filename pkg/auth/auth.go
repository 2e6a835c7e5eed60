package auth

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kerbaras/stonkers/pkg/config"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var ErrNotAuthenticated = errors.New("no token found, run `stonkers setup` first")

var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://auth.tdameritrade.com/auth",
	TokenURL:  "https://api.tdameritrade.com/v1/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// ClientID is the OAuth client id the broker derives from an API key.
func ClientID(apiKey string) string {
	if strings.HasSuffix(apiKey, "@AMER.OAUTHAP") {
		return apiKey
	}
	return apiKey + "@AMER.OAUTHAP"
}

// TokenFile stores an oauth2 token as JSON.
type TokenFile struct {
	Path string
	mu   sync.Mutex
}

func (f *TokenFile) Exists() bool {
	_, err := os.Stat(f.Path)
	return err == nil
}

func (f *TokenFile) Load() (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(b, &token); err != nil {
		return nil, fmt.Errorf("reading token file %s: %w", f.Path, err)
	}
	return &token, nil
}

func (f *TokenFile) Save(token *oauth2.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.Path, b, 0o600)
}

// persistingSource writes every newly issued token back to the token file.
type persistingSource struct {
	base oauth2.TokenSource
	file *TokenFile

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token.AccessToken != s.last {
		if err := s.file.Save(token); err != nil {
			log.Warn().Err(err).Str("path", s.file.Path).Msg("could not persist refreshed token")
		} else {
			log.Debug().Str("path", s.file.Path).Msg("token refreshed")
		}
		s.last = token.AccessToken
	}
	return token, nil
}

type Authenticator struct {
	Config *oauth2.Config
	Tokens *TokenFile

	// In and Out drive the manual login flow.
	In  io.Reader
	Out io.Writer
}

func New(creds config.Credentials, tokenPath string) *Authenticator {
	return &Authenticator{
		Config: &oauth2.Config{
			ClientID:    ClientID(creds.APIKey),
			RedirectURL: creds.RedirectURI,
			Endpoint:    Endpoint,
		},
		Tokens: &TokenFile{Path: tokenPath},
		In:     os.Stdin,
		Out:    os.Stderr,
	}
}

// Login runs the manual flow: the user opens the authorization URL, signs in,
// and pastes back the URL the broker redirected to.
func (a *Authenticator) Login(ctx context.Context) (*oauth2.Token, error) {
	authURL := a.Config.AuthCodeURL("stonkers")

	fmt.Fprintln(a.Out, "Open this URL in a browser and sign in:")
	fmt.Fprintln(a.Out)
	fmt.Fprintln(a.Out, "  "+authURL)
	fmt.Fprintln(a.Out)
	fmt.Fprint(a.Out, "Paste the full redirect URL here: ")

	line, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading redirect URL: %w", err)
	}

	code, err := authorizationCode(strings.TrimSpace(line))
	if err != nil {
		return nil, err
	}

	token, err := a.Config.Exchange(ctx, code, oauth2.SetAuthURLParam("access_type", "offline"))
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	if err := a.Tokens.Save(token); err != nil {
		return nil, fmt.Errorf("saving token: %w", err)
	}
	log.Info().Str("path", a.Tokens.Path).Msg("token saved")

	return token, nil
}

// Client returns an HTTP client that authorizes requests with the stored
// token and refreshes it when it expires. When no token is stored and
// interactive is set, Login runs first.
func (a *Authenticator) Client(ctx context.Context, interactive bool) (*http.Client, error) {
	token, err := a.Tokens.Load()
	switch {
	case errors.Is(err, os.ErrNotExist):
		if !interactive {
			return nil, ErrNotAuthenticated
		}
		if token, err = a.Login(ctx); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		log.Info().Str("path", a.Tokens.Path).Msg("using token file")
	}

	src := &persistingSource{
		base: a.Config.TokenSource(ctx, token),
		file: a.Tokens,
		last: token.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, src)), nil
}

func authorizationCode(redirect string) (string, error) {
	if redirect == "" {
		return "", errors.New("no redirect URL given")
	}
	u, err := url.Parse(redirect)
	if err != nil {
		return "", fmt.Errorf("parsing redirect URL: %w", err)
	}
	if msg := u.Query().Get("error"); msg != "" {
		return "", fmt.Errorf("authorization denied: %s", msg)
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", errors.New("redirect URL has no code parameter")
	}
	return code, nil
}
