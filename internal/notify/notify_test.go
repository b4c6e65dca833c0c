package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPostsTwilioMessage(t *testing.T) {
	var (
		gotPath string
		gotUser string
		gotPass string
		gotForm map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"To":   r.PostFormValue("To"),
			"From": r.PostFormValue("From"),
			"Body": r.PostFormValue("Body"),
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123"}`))
	}))
	defer srv.Close()

	m := NewMessenger(Config{
		AccountSID: "AC42",
		AuthToken:  "secret",
		FromNumber: "whatsapp:+15550009999",
		APIBaseURL: srv.URL,
	}, nil)

	err := m.Send(context.Background(), "whatsapp:+14155550100", Confirmation("INV-55"))
	require.NoError(t, err)

	assert.Equal(t, "/2010-04-01/Accounts/AC42/Messages.json", gotPath)
	assert.Equal(t, "AC42", gotUser)
	assert.Equal(t, "secret", gotPass)
	assert.Equal(t, "whatsapp:+14155550100", gotForm["To"])
	assert.Equal(t, "whatsapp:+15550009999", gotForm["From"])
	assert.Contains(t, gotForm["Body"], "INV-55")
}

func TestSendNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"bad number"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	m := NewMessenger(Config{AccountSID: "AC42", AuthToken: "secret", APIBaseURL: srv.URL}, nil)

	err := m.Send(context.Background(), "whatsapp:+bad", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-2xx")
}

func TestConfirmationBody(t *testing.T) {
	body := Confirmation("ABC-1")
	assert.Contains(t, body, "ABC-1")
	assert.Contains(t, body, "processed successfully")
}
