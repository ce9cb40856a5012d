package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anon-comments-api/internal/apperror"
	"github.com/anon-comments-api/internal/config"
	"github.com/rs/zerolog"
)

func newProvider(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.PostForm.Get("secret") != "shh":
			w.Write([]byte(`{"success":false,"error-codes":["invalid-input-secret"]}`))
		case r.PostForm.Get("response") == "good":
			w.Write([]byte(`{"success":true}`))
		case r.PostForm.Get("response") == "broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPVerifier(t *testing.T) {
	srv := newProvider(t)
	v := New(config.CaptchaConfig{
		Provider:  ProviderTurnstile,
		SecretKey: "shh",
		VerifyURL: srv.URL,
		Timeout:   time.Second,
	}, zerolog.Nop())

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid token", "good", false},
		{"invalid token", "bad", true},
		{"missing token", "", true},
		{"provider error", "broken", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(context.Background(), tt.token, "203.0.113.7")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify(%q) err = %v, wantErr %v", tt.token, err, tt.wantErr)
			}
			if err != nil && !apperror.Is(err, apperror.KindCaptcha) {
				t.Errorf("expected captcha error kind, got %v", err)
			}
		})
	}
}

func TestNew_Disabled(t *testing.T) {
	v := New(config.CaptchaConfig{Provider: "none"}, zerolog.Nop())
	if err := v.Verify(context.Background(), "", ""); err != nil {
		t.Errorf("disabled verifier should accept anything: %v", err)
	}
}

func TestNew_Misconfigured(t *testing.T) {
	tests := []config.CaptchaConfig{
		{Provider: ProviderHCaptcha},
		{Provider: "mystery", SecretKey: "shh"},
	}
	for _, cfg := range tests {
		v := New(cfg, zerolog.Nop())
		if err := v.Verify(context.Background(), "good", ""); !apperror.Is(err, apperror.KindCaptcha) {
			t.Errorf("provider %q: expected captcha error, got %v", cfg.Provider, err)
		}
	}
}

func TestHTTPVerifier_WrongSecret(t *testing.T) {
	srv := newProvider(t)
	v := New(config.CaptchaConfig{Provider: ProviderReCaptcha, SecretKey: "nope", VerifyURL: srv.URL}, zerolog.Nop())
	if err := v.Verify(context.Background(), "good", ""); !apperror.Is(err, apperror.KindCaptcha) {
		t.Errorf("expected rejection with wrong secret, got %v", err)
	}
}
