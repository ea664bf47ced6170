package email_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountbilling/pkg/email"
)

func validConfig() email.Config {
	return email.Config{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "billing@example.com",
		SupportEmail:         "support@example.com",
	}
}

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  email.SendEmailParams
		wantErr bool
	}{
		{"valid", email.SendEmailParams{SendTo: "a@b.co", Subject: "s", BodyHTML: "<p>x</p>"}, false},
		{"bad recipient", email.SendEmailParams{SendTo: "nope", Subject: "s", BodyHTML: "x"}, true},
		{"no subject", email.SendEmailParams{SendTo: "a@b.co", BodyHTML: "x"}, true},
		{"no body", email.SendEmailParams{SendTo: "a@b.co", Subject: "s"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.params.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, email.ErrInvalidParams)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	out := email.Render("<p>Hi {{name}}, join {{account}}. {{unknown}}</p>", map[string]string{
		"name":    "Ann <admin>",
		"account": "Acme",
	})
	assert.Equal(t, "<p>Hi Ann &lt;admin&gt;, join Acme. {{unknown}}</p>", out)
}

func TestNewPostmarkClient_InvalidConfig(t *testing.T) {
	t.Parallel()

	mutations := map[string]func(*email.Config){
		"server token":  func(c *email.Config) { c.PostmarkServerToken = "" },
		"account token": func(c *email.Config) { c.PostmarkAccountToken = "" },
		"sender":        func(c *email.Config) { c.SenderEmail = "invalid" },
		"support":       func(c *email.Config) { c.SupportEmail = "" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			mutate(&cfg)
			client, err := email.NewPostmarkClient(cfg)
			assert.ErrorIs(t, err, email.ErrInvalidConfig)
			assert.Nil(t, client)
		})
	}
}

func TestPostmarkClient_SendEmail(t *testing.T) {
	t.Parallel()

	t.Run("delivers message", func(t *testing.T) {
		t.Parallel()

		var received map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/email", r.URL.Path)
			assert.Equal(t, "server-token", r.Header.Get("X-Postmark-Server-Token"))
			_ = json.NewDecoder(r.Body).Decode(&received)
			_, _ = w.Write([]byte(`{"ErrorCode":0,"Message":"OK","MessageID":"m-1"}`))
		}))
		defer srv.Close()

		cfg := validConfig()
		cfg.PostmarkBaseURL = srv.URL
		client, err := email.NewPostmarkClient(cfg)
		require.NoError(t, err)

		err = client.SendEmail(context.Background(), email.SendEmailParams{
			SendTo:   "payer@example.com",
			Subject:  "Receipt",
			BodyHTML: "<p>thanks</p>",
			Tag:      "receipt",
		})
		require.NoError(t, err)
		assert.Equal(t, "payer@example.com", received["To"])
		assert.Equal(t, "billing@example.com", received["From"])
		assert.Equal(t, "support@example.com", received["ReplyTo"])
	})

	t.Run("provider error code", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"ErrorCode":300,"Message":"Invalid email request"}`))
		}))
		defer srv.Close()

		cfg := validConfig()
		cfg.PostmarkBaseURL = srv.URL
		client, err := email.NewPostmarkClient(cfg)
		require.NoError(t, err)

		err = client.SendEmail(context.Background(), email.SendEmailParams{
			SendTo: "payer@example.com", Subject: "Receipt", BodyHTML: "<p>x</p>",
		})
		assert.ErrorIs(t, err, email.ErrFailedToSendEmail)
	})
}

func TestDevSender(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sender, err := email.New(email.Config{DevDir: dir})
	require.NoError(t, err)

	require.NoError(t, sender.SendEmail(context.Background(), email.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "You are invited",
		BodyHTML: "<p>join</p>",
		Tag:      "invite",
	}))

	htmlFiles, err := filepath.Glob(filepath.Join(dir, "*_invite.html"))
	require.NoError(t, err)
	require.Len(t, htmlFiles, 1)
	body, err := os.ReadFile(htmlFiles[0])
	require.NoError(t, err)
	assert.Equal(t, "<p>join</p>", string(body))

	jsonFiles, err := filepath.Glob(filepath.Join(dir, "*_invite.json"))
	require.NoError(t, err)
	assert.Len(t, jsonFiles, 1)

	assert.ErrorIs(t, sender.SendEmail(context.Background(), email.SendEmailParams{}), email.ErrInvalidParams)
}
