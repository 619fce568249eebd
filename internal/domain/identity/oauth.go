package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"ideavote/internal/domain/auth"
	"ideavote/internal/domain/directory"
)

const zohoScope = "ZohoPeople.forms.ALL"

type ZohoConfig struct {
	Domain       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// AccountsURL overrides https://accounts.<Domain>.
	AccountsURL string
	HTTPClient  *http.Client
}

// ZohoProvider runs the authorization-code exchange against Zoho accounts and
// reads the signed-in user's email from the user info endpoint.
type ZohoProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	client      *http.Client
}

func NewZohoProvider(cfg ZohoConfig) *ZohoProvider {
	base := strings.TrimRight(cfg.AccountsURL, "/")
	if base == "" {
		base = "https://accounts." + strings.TrimSpace(cfg.Domain)
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{zohoScope}
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ZohoProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/oauth/v2/auth",
				TokenURL:  base + "/oauth/v2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: base + "/oauth/user/info",
		client:      client,
	}
}

func (p *ZohoProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (p *ZohoProvider) ExchangeEmail(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrOAuthExchange, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token.AccessToken)
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrOAuthExchange, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrOAuthExchange, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: user info returned %d", ErrOAuthExchange, resp.StatusCode)
	}
	var info struct {
		Email string `json:"Email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("%w: %w", ErrOAuthExchange, err)
	}
	if strings.TrimSpace(info.Email) == "" {
		return "", fmt.Errorf("%w: user info has no email", ErrOAuthExchange)
	}
	return info.Email, nil
}

type EmailProvider interface {
	AuthCodeURL(state string) string
	ExchangeEmail(ctx context.Context, code string) (string, error)
}

// OAuthFlow ties the provider to the resolver. State values are signed
// tokens so the callback needs no server-side storage.
type OAuthFlow struct {
	Provider    EmailProvider
	Resolver    *Resolver
	StateSecret string
	StateTTL    time.Duration
}

func (f *OAuthFlow) Enabled() bool {
	return f != nil && f.Provider != nil
}

func (f *OAuthFlow) AuthURL() (authURL, state string, err error) {
	if !f.Enabled() {
		return "", "", ErrOAuthDisabled
	}
	ttl := f.StateTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	state, err = auth.IssueOAuthState(f.StateSecret, ttl)
	if err != nil {
		return "", "", err
	}
	return f.Provider.AuthCodeURL(state), state, nil
}

func (f *OAuthFlow) Callback(ctx context.Context, code, state string) (directory.Employee, error) {
	if !f.Enabled() {
		return directory.Employee{}, ErrOAuthDisabled
	}
	if err := auth.VerifyOAuthState(f.StateSecret, state); err != nil {
		return directory.Employee{}, ErrInvalidState
	}
	email, err := f.Provider.ExchangeEmail(ctx, strings.TrimSpace(code))
	if err != nil {
		return directory.Employee{}, err
	}
	return f.Resolver.ResolveEmail(ctx, email)
}
