package host

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_RegisterUser_Success(t *testing.T) {
	var gotBody registerRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/register", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{"user_id": "@alice:example.com"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "hunter2", 5*time.Second)
	userID, err := c.RegisterUser(context.Background(), "alice", "Alice", []string{"alice@example.com"})

	require.NoError(t, err)
	assert.Equal(t, "@alice:example.com", userID)
	assert.Equal(t, "Bearer hunter2", gotAuth)
	assert.Equal(t, "alice", gotBody.Username)
	assert.Equal(t, "Alice", gotBody.Displayname)
	assert.Equal(t, []string{"alice@example.com"}, gotBody.Emails)
}

func TestClient_RegisterUser_UserInUse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"errcode": "M_USER_IN_USE",
			"error":   "User ID already taken.",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	_, err := c.RegisterUser(context.Background(), "alice", "Alice", nil)

	require.Error(t, err)
	assert.True(t, IsNameUnavailable(err))

	var hostErr *Error
	require.ErrorAs(t, err, &hostErr)
	assert.Equal(t, http.StatusBadRequest, hostErr.Code)
	assert.Equal(t, "User ID already taken.", hostErr.Msg)
}

func TestClient_RegisterUser_OpaqueErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	_, err := c.RegisterUser(context.Background(), "alice", "Alice", nil)

	var hostErr *Error
	require.ErrorAs(t, err, &hostErr)
	assert.Equal(t, http.StatusBadGateway, hostErr.Code)
	assert.False(t, IsNameUnavailable(err))
}

func TestClient_RecordUserExternalID(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	err := c.RecordUserExternalID(context.Background(), "saml", "remote-1234", "@alice:example.com")

	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/users/@alice:example.com/external_ids/saml", gotPath)
	assert.Equal(t, "remote-1234", gotBody["external_id"])
}

func TestClient_UsernameAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/register/available", r.URL.Path)
		assert.Equal(t, "alice", r.URL.Query().Get("username"))
		json.NewEncoder(w).Encode(map[string]bool{"available": true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	available, err := c.UsernameAvailable(context.Background(), "alice")

	require.NoError(t, err)
	assert.True(t, available)
}

func TestClient_UsernameAvailable_TakenViaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"errcode": "M_USER_IN_USE",
			"error":   "User ID already taken.",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	available, err := c.UsernameAvailable(context.Background(), "alice")

	require.NoError(t, err)
	assert.False(t, available)
}

func TestClient_CompleteSSOLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/@alice:example.com/login_token", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"login_token": "tok123"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/submit", nil)

	err := c.CompleteSSOLogin(w, r, "@alice:example.com", "https://client.example.com/return")

	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://client.example.com/return?loginToken=tok123", w.Header().Get("Location"))
}

func TestAddLoginToken(t *testing.T) {
	got, err := addLoginToken("https://client.example.com/return", "tok")
	require.NoError(t, err)
	assert.Equal(t, "https://client.example.com/return?loginToken=tok", got)
}

func TestAddLoginToken_PreservesQuery(t *testing.T) {
	got, err := addLoginToken("https://client.example.com/return?foo=bar", "tok")
	require.NoError(t, err)
	assert.Equal(t, "https://client.example.com/return?foo=bar&loginToken=tok", got)
}

func TestError_String(t *testing.T) {
	err := &Error{Code: 400, Errcode: ErrcodeUserInUse, Msg: "User ID already taken."}
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "M_USER_IN_USE")
}
