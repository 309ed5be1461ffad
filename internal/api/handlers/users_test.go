package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjun/temporary-social/internal/testutil"
)

func doJSON(t *testing.T, method, url, token string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	ts := testutil.NewTestServer(t)
	ts.DB.Truncate(t)

	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	resp := doJSON(t, http.MethodPut, ts.APIURL("/users/profile"), token, map[string]any{
		"bio":   "five hours of fame",
		"upiId": "me@upi",
		"socialLinks": map[string]string{
			"instagram": "@me",
		},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		User struct {
			Bio         string `json:"bio"`
			SocialLinks struct {
				Instagram string `json:"instagram"`
			} `json:"socialLinks"`
		} `json:"user"`
	}
	testutil.AssertJSONResponse(t, resp, &result)
	assert.Equal(t, "five hours of fame", result.User.Bio)
	assert.Equal(t, "@me", result.User.SocialLinks.Instagram)
}

func TestUserHandler_Search(t *testing.T) {
	ts := testutil.NewTestServer(t)
	ts.DB.Truncate(t)

	_, token := testutil.NewUserBuilder().WithUsername("searching_sam").BuildAndAuthenticate(t, ts)
	testutil.NewUserBuilder().WithUsername("findable_fred").Build(t, ts.DB.DB)

	t.Run("finds matches", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.APIURL("/users/search?q=findable"), token, nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result struct {
			Users []struct {
				Username string `json:"username"`
			} `json:"users"`
		}
		testutil.AssertJSONResponse(t, resp, &result)
		require.Len(t, result.Users, 1)
		assert.Equal(t, "findable_fred", result.Users[0].Username)
	})

	t.Run("missing query", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.APIURL("/users/search"), token, nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestUserHandler_FollowFlow(t *testing.T) {
	ts := testutil.NewTestServer(t)
	ts.DB.Truncate(t)

	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	other := testutil.NewUserBuilder().WithUsername("followee").Build(t, ts.DB.DB)

	follow := func() *http.Response {
		return doJSON(t, http.MethodPost, ts.APIURL("/users/"+other.ID.String()+"/follow"), token, nil)
	}

	resp := follow()
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Duplicate follow conflicts
	resp = follow()
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Profile view reflects the relationship
	resp = doJSON(t, http.MethodGet, ts.APIURL("/users/"+other.ID.String()), token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		User struct {
			FollowersCount int64 `json:"followersCount"`
			IsFollowing    bool  `json:"isFollowing"`
		} `json:"user"`
	}
	testutil.AssertJSONResponse(t, resp, &result)
	assert.EqualValues(t, 1, result.User.FollowersCount)
	assert.True(t, result.User.IsFollowing)

	// Unfollow undoes it
	resp = doJSON(t, http.MethodDelete, ts.APIURL("/users/"+other.ID.String()+"/follow"), token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, ts.APIURL("/users/"+other.ID.String()+"/follow"), token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUserHandler_GetByID_NotFound(t *testing.T) {
	ts := testutil.NewTestServer(t)
	ts.DB.Truncate(t)

	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	resp := doJSON(t, http.MethodGet, ts.APIURL("/users/00000000-0000-0000-0000-000000000001"), token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
