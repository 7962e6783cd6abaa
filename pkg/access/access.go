// Package access initiates login flows against the identity provider: the
// CLI device-authorization flow, the web and API authorization-code URLs,
// and the code-exchange callback. Token validation itself lives in
// pkg/auth; nothing here grants access by itself.
package access

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/oauth2"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
	"github.com/EnvSync-Cloud/envsync-api/pkg/config"
	"github.com/EnvSync-Cloud/envsync-api/pkg/httputil"
)

// Handlers serves the public login-initiation endpoints
type Handlers struct {
	web oauth2.Config
	cli oauth2.Config

	audience string
}

// NewHandlers builds the oauth2 flow configurations from the auth settings
func NewHandlers(cfg config.AuthConfig) *Handlers {
	issuer := cfg.IssuerURL
	endpoint := oauth2.Endpoint{
		AuthURL:       issuer + "/authorize",
		TokenURL:      issuer + "/oauth/token",
		DeviceAuthURL: issuer + "/oauth/device/code",
	}

	return &Handlers{
		web: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "profile", "email"},
		},
		cli: oauth2.Config{
			ClientID: cfg.CLIClientID,
			Endpoint: endpoint,
			Scopes:   []string{"openid", "profile", "email", "offline_access"},
		},
		audience: cfg.Audience,
	}
}

// RegisterRoutes registers the login routes on the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/access/login/web", h.WebLogin).Methods(http.MethodGet)
	router.HandleFunc("/access/login/api", h.APILogin).Methods(http.MethodGet)
	router.HandleFunc("/access/login/cli", h.CLILogin).Methods(http.MethodPost)
	router.HandleFunc("/access/login/cli/token", h.CLIToken).Methods(http.MethodPost)
	router.HandleFunc("/access/callback", h.Callback).Methods(http.MethodGet)
}

func (h *Handlers) audienceParam() oauth2.AuthCodeOption {
	return oauth2.SetAuthURLParam("audience", h.audience)
}

// WebLogin returns the browser authorization URL. The caller keeps the
// state value and checks it on the callback.
func (h *Handlers) WebLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	httputil.WriteSuccess(w, map[string]string{
		"url":   h.web.AuthCodeURL(state, h.audienceParam()),
		"state": state,
	})
}

// APILogin returns an authorization URL requesting an API audience token
func (h *Handlers) APILogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	httputil.WriteSuccess(w, map[string]string{
		"url":   h.web.AuthCodeURL(state, h.audienceParam(), oauth2.AccessTypeOffline),
		"state": state,
	})
}

// CLILogin starts the device-authorization flow and returns the user code
// the CLI shows
func (h *Handlers) CLILogin(w http.ResponseWriter, r *http.Request) {
	response, err := h.cli.DeviceAuth(r.Context(), h.audienceParam())
	if err != nil {
		httputil.WriteAppError(w, r, apperrors.Upstream("failed to start device authorization", err))
		return
	}
	httputil.WriteSuccess(w, response)
}

// cliTokenRequest carries the device code the CLI polls with
type cliTokenRequest struct {
	DeviceCode string `json:"device_code"`
}

// CLIToken exchanges a device code for tokens once the user has approved
func (h *Handlers) CLIToken(w http.ResponseWriter, r *http.Request) {
	var req cliTokenRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.DeviceCode, "device_code") {
		return
	}

	token, err := h.cli.DeviceAccessToken(r.Context(), &oauth2.DeviceAuthResponse{DeviceCode: req.DeviceCode})
	if err != nil {
		// Pending approval and expired codes both land here; the CLI
		// keys off the 401 and keeps polling or restarts.
		httputil.WriteAppError(w, r, apperrors.Authentication("device authorization is not complete"))
		return
	}
	httputil.WriteSuccess(w, token)
}

// Callback exchanges an authorization code for tokens
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := httputil.ParseQueryString(r, "code", "")
	if !httputil.RequireNonEmpty(w, code, "code") {
		return
	}

	token, err := h.web.Exchange(r.Context(), code)
	if err != nil {
		httputil.WriteAppError(w, r, apperrors.Authentication("code exchange failed"))
		return
	}
	httputil.WriteSuccess(w, token)
}
