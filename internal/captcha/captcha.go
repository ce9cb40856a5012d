// Package captcha verifies CAPTCHA tokens against a hosted provider
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anon-comments-api/internal/apperror"
	"github.com/anon-comments-api/internal/config"
	"github.com/rs/zerolog"
)

// Verifier checks a client-supplied token
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Provider names
const (
	ProviderNone      = "none"
	ProviderTurnstile = "turnstile"
	ProviderHCaptcha  = "hcaptcha"
	ProviderReCaptcha = "recaptcha"
)

var defaultVerifyURLs = map[string]string{
	ProviderTurnstile: "https://challenges.cloudflare.com/turnstile/v0/siteverify",
	ProviderHCaptcha:  "https://api.hcaptcha.com/siteverify",
	ProviderReCaptcha: "https://www.google.com/recaptcha/api/siteverify",
}

var errMisconfigured = errors.New("captcha provider is not configured")

// New builds the Verifier selected by cfg.Provider. An unknown provider or
// a missing secret yields a verifier that fails every check.
func New(cfg config.CaptchaConfig, log zerolog.Logger) Verifier {
	log = log.With().Str("component", "captcha").Str("provider", cfg.Provider).Logger()

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == ProviderNone {
		return Disabled{}
	}

	verifyURL := cfg.VerifyURL
	if verifyURL == "" {
		verifyURL = defaultVerifyURLs[provider]
	}
	if verifyURL == "" || cfg.SecretKey == "" {
		log.Error().Msg("CAPTCHA provider misconfigured; submissions will be rejected")
		return misconfigured{}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPVerifier{
		verifyURL: verifyURL,
		secret:    cfg.SecretKey,
		client:    &http.Client{Timeout: timeout},
		log:       log,
	}
}

// Disabled accepts every token
type Disabled struct{}

func (Disabled) Verify(context.Context, string, string) error { return nil }

type misconfigured struct{}

func (misconfigured) Verify(context.Context, string, string) error {
	return apperror.Captcha("captcha verification is unavailable", errMisconfigured)
}

// HTTPVerifier posts the token to a siteverify endpoint. Turnstile,
// hCaptcha and reCAPTCHA share the same form fields and response shape.
type HTTPVerifier struct {
	verifyURL string
	secret    string
	client    *http.Client
	log       zerolog.Logger
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (v *HTTPVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperror.Captcha("captcha token is required", nil)
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return apperror.Captcha("captcha verification failed", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		v.log.Warn().Err(err).Msg("CAPTCHA provider unreachable")
		return apperror.Captcha("captcha verification failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperror.Captcha("captcha verification failed", fmt.Errorf("provider returned %d", resp.StatusCode))
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return apperror.Captcha("captcha verification failed", err)
	}
	if !out.Success {
		v.log.Debug().Strs("error_codes", out.ErrorCodes).Msg("CAPTCHA rejected")
		return apperror.Captcha("captcha verification failed", nil)
	}
	return nil
}

var (
	_ Verifier = Disabled{}
	_ Verifier = misconfigured{}
	_ Verifier = (*HTTPVerifier)(nil)
)
