package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjun/temporary-social/internal/domain"
	"github.com/arjun/temporary-social/internal/testutil"
)

func TestPaymentHandler_CreateAndVerify(t *testing.T) {
	ts := testutil.NewTestServer(t)
	ts.DB.Truncate(t)

	_, aliceToken := testutil.NewUserBuilder().
		WithUsername("alice").WithUpiID("alice@upi").
		BuildAndAuthenticate(t, ts)
	bob, _ := testutil.NewUserBuilder().
		WithUsername("bob").WithUpiID("bob@upi").
		BuildAndAuthenticate(t, ts)

	resp := doJSON(t, http.MethodPost, ts.APIURL("/payments"), aliceToken, map[string]any{
		"recipientId": bob.ID.String(),
		"amount":      750,
		"description": "brunch",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Payment struct {
			ID            string `json:"id"`
			Status        string `json:"status"`
			TransactionID string `json:"transactionId"`
		} `json:"payment"`
	}
	testutil.AssertJSONResponse(t, resp, &created)
	assert.Equal(t, "pending", created.Payment.Status)
	assert.NotEmpty(t, created.Payment.TransactionID)

	// Sender fetches the UPI deep link
	resp = doJSON(t, http.MethodGet, ts.APIURL("/payments/"+created.Payment.ID+"/upi-link"), aliceToken, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var link struct {
		UPIURL string `json:"upiUrl"`
	}
	testutil.AssertJSONResponse(t, resp, &link)
	assert.Contains(t, link.UPIURL, "upi://pay?pa=bob@upi")

	// Development mode accepts manual verification
	resp = doJSON(t, http.MethodPost, ts.APIURL("/payments/"+created.Payment.ID+"/verify"), aliceToken, map[string]string{})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var verified struct {
		Payment struct {
			Status string `json:"status"`
		} `json:"payment"`
	}
	testutil.AssertJSONResponse(t, resp, &verified)
	assert.Equal(t, "completed", verified.Payment.Status)

	// A second verify conflicts
	resp = doJSON(t, http.MethodPost, ts.APIURL("/payments/"+created.Payment.ID+"/verify"), aliceToken, map[string]string{})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPaymentHandler_CreateWithoutUpiID(t *testing.T) {
	ts := testutil.NewTestServer(t)
	ts.DB.Truncate(t)

	_, token := testutil.NewUserBuilder().WithUpiID("").BuildAndAuthenticate(t, ts)
	bob := testutil.NewUserBuilder().WithUpiID("bob@upi").Build(t, ts.DB.DB)

	resp := doJSON(t, http.MethodPost, ts.APIURL("/payments"), token, map[string]any{
		"recipientId": bob.ID.String(),
		"amount":      100,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var count int64
	require.NoError(t, ts.DB.DB.Model(&domain.Payment{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestPaymentHandler_CancelAndHistory(t *testing.T) {
	ts := testutil.NewTestServer(t)
	ts.DB.Truncate(t)

	alice, aliceToken := testutil.NewUserBuilder().
		WithUsername("alice").WithUpiID("alice@upi").
		BuildAndAuthenticate(t, ts)
	bob := testutil.NewUserBuilder().WithUpiID("bob@upi").Build(t, ts.DB.DB)

	payment := testutil.NewPaymentBuilder(alice, bob).Build(t, ts.DB.DB)

	resp := doJSON(t, http.MethodPost, ts.APIURL("/payments/"+payment.ID.String()+"/cancel"), aliceToken, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cancelled struct {
		Payment struct {
			Status string `json:"status"`
		} `json:"payment"`
	}
	testutil.AssertJSONResponse(t, resp, &cancelled)
	assert.Equal(t, "cancelled", cancelled.Payment.Status)

	// History reflects the terminal state
	resp = doJSON(t, http.MethodGet, ts.APIURL("/payments/history?status=cancelled"), aliceToken, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var history struct {
		Payments []struct {
			ID string `json:"id"`
		} `json:"payments"`
	}
	testutil.AssertJSONResponse(t, resp, &history)
	require.Len(t, history.Payments, 1)
	assert.Equal(t, payment.ID.String(), history.Payments[0].ID)

	// Nothing pending anymore
	resp = doJSON(t, http.MethodGet, ts.APIURL("/payments/pending"), aliceToken, nil)
	defer resp.Body.Close()

	var pending struct {
		Payments []struct {
			ID string `json:"id"`
		} `json:"payments"`
	}
	testutil.AssertJSONResponse(t, resp, &pending)
	assert.Empty(t, pending.Payments)
}
