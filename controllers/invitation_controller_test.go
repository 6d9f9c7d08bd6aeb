package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groclist/models"
)

func invitePath(listID uint) string {
	return fmt.Sprintf("/api/v1/lists/%d/invitations", listID)
}

func TestCreateInvitation(t *testing.T) {
	app, db := setupApp(t)
	alice, aliceToken := createUser(t, db, "alice@example.com")
	bob, bobToken := createUser(t, db, "bob@example.com")
	list := createListWithOwner(t, db, alice, "Groceries")

	t.Run("owner invites by email", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, invitePath(list.ID), aliceToken, map[string]string{
			"email": "Carol@Example.com",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var invitation models.ListInvitation
		decodeData(t, resp, &invitation)
		assert.Equal(t, "carol@example.com", invitation.InvitedEmail)
		assert.Equal(t, models.InvitationPending, invitation.Status)
		assert.Equal(t, list.Name, invitation.ListName)
		assert.Equal(t, alice.Email, invitation.InvitedByEmail)
	})

	t.Run("duplicate pending conflicts", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, invitePath(list.ID), aliceToken, map[string]string{
			"email": "carol@example.com",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("existing member conflicts", func(t *testing.T) {
		addListMember(t, db, list, bob)
		resp := doRequest(t, app, http.MethodPost, invitePath(list.ID), aliceToken, map[string]string{
			"email": "bob@example.com",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("owner cannot invite themselves", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, invitePath(list.ID), aliceToken, map[string]string{
			"email": "alice@example.com",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("invalid email rejected", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, invitePath(list.ID), aliceToken, map[string]string{
			"email": "not-an-email",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("non-owner cannot invite", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, invitePath(list.ID), bobToken, map[string]string{
			"email": "dave@example.com",
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestGetMyInvitations(t *testing.T) {
	app, db := setupApp(t)
	alice, aliceToken := createUser(t, db, "alice@example.com")
	_, bobToken := createUser(t, db, "bob@example.com")
	list := createListWithOwner(t, db, alice, "Groceries")

	resp := doRequest(t, app, http.MethodPost, invitePath(list.ID), aliceToken, map[string]string{
		"email": "bob@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	t.Run("invitee sees pending invitation", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/v1/invitations/", bobToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var invitations []models.ListInvitation
		decodeData(t, resp, &invitations)
		require.Len(t, invitations, 1)
		assert.Equal(t, "Groceries", invitations[0].ListName)
	})

	t.Run("others see nothing", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/v1/invitations/", aliceToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var invitations []models.ListInvitation
		decodeData(t, resp, &invitations)
		assert.Empty(t, invitations)
	})
}

func TestGetListInvitationsOwnerOnly(t *testing.T) {
	app, db := setupApp(t)
	alice, aliceToken := createUser(t, db, "alice@example.com")
	bob, bobToken := createUser(t, db, "bob@example.com")
	list := createListWithOwner(t, db, alice, "Groceries")
	addListMember(t, db, list, bob)

	resp := doRequest(t, app, http.MethodPost, invitePath(list.ID), aliceToken, map[string]string{
		"email": "carol@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, invitePath(list.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var invitations []models.ListInvitation
	decodeData(t, resp, &invitations)
	assert.Len(t, invitations, 1)

	resp = doRequest(t, app, http.MethodGet, invitePath(list.ID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRespondToInvitation(t *testing.T) {
	app, db := setupApp(t)
	alice, aliceToken := createUser(t, db, "alice@example.com")
	bob, bobToken := createUser(t, db, "bob@example.com")
	_, carolToken := createUser(t, db, "carol@example.com")
	list := createListWithOwner(t, db, alice, "Groceries")

	resp := doRequest(t, app, http.MethodPost, invitePath(list.ID), aliceToken, map[string]string{
		"email": "bob@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var invitation models.ListInvitation
	decodeData(t, resp, &invitation)

	respondPath := fmt.Sprintf("/api/v1/invitations/%d/respond", invitation.ID)

	t.Run("only the invitee can respond", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, respondPath, carolToken, map[string]interface{}{
			"accept": true,
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("accept adds membership", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, respondPath, bobToken, map[string]interface{}{
			"accept": true,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var reloaded models.ListInvitation
		require.NoError(t, db.First(&reloaded, invitation.ID).Error)
		assert.Equal(t, models.InvitationAccepted, reloaded.Status)
		assert.NotNil(t, reloaded.RespondedAt)

		var count int64
		db.Model(&models.ListMember{}).
			Where("list_id = ? AND user_id = ?", list.ID, bob.ID).
			Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("second response conflicts", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, respondPath, bobToken, map[string]interface{}{
			"accept": false,
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestReinviteAfterRemoval(t *testing.T) {
	app, db := setupApp(t)
	alice, aliceToken := createUser(t, db, "alice@example.com")
	bob, bobToken := createUser(t, db, "bob@example.com")
	list := createListWithOwner(t, db, alice, "Groceries")
	addListMember(t, db, list, bob)

	resp := doRequest(t, app, http.MethodDelete,
		fmt.Sprintf("/api/v1/lists/%d/members/%d", list.ID, bob.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A fresh invitation after removal goes through the whole lifecycle
	resp = doRequest(t, app, http.MethodPost, invitePath(list.ID), aliceToken, map[string]string{
		"email": "bob@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var invitation models.ListInvitation
	decodeData(t, resp, &invitation)

	resp = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/invitations/%d/respond", invitation.ID), bobToken, map[string]interface{}{
			"accept": true,
		})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var count int64
	db.Model(&models.ListMember{}).
		Where("list_id = ? AND user_id = ?", list.ID, bob.ID).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestDeclineInvitation(t *testing.T) {
	app, db := setupApp(t)
	alice, aliceToken := createUser(t, db, "alice@example.com")
	bob, bobToken := createUser(t, db, "bob@example.com")
	list := createListWithOwner(t, db, alice, "Groceries")

	resp := doRequest(t, app, http.MethodPost, invitePath(list.ID), aliceToken, map[string]string{
		"email": "bob@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var invitation models.ListInvitation
	decodeData(t, resp, &invitation)

	resp = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/invitations/%d/respond", invitation.ID), bobToken, map[string]interface{}{
			"accept": false,
		})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reloaded models.ListInvitation
	require.NoError(t, db.First(&reloaded, invitation.ID).Error)
	assert.Equal(t, models.InvitationDeclined, reloaded.Status)

	// Declining never grants access
	var count int64
	db.Model(&models.ListMember{}).
		Where("list_id = ? AND user_id = ?", list.ID, bob.ID).
		Count(&count)
	assert.Zero(t, count)
}

func TestRevokeInvitation(t *testing.T) {
	app, db := setupApp(t)
	alice, aliceToken := createUser(t, db, "alice@example.com")
	_, bobToken := createUser(t, db, "bob@example.com")
	list := createListWithOwner(t, db, alice, "Groceries")

	resp := doRequest(t, app, http.MethodPost, invitePath(list.ID), aliceToken, map[string]string{
		"email": "bob@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var invitation models.ListInvitation
	decodeData(t, resp, &invitation)

	revokePath := fmt.Sprintf("/api/v1/invitations/%d", invitation.ID)

	t.Run("non-owner cannot revoke", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodDelete, revokePath, bobToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("owner revokes pending", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodDelete, revokePath, aliceToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var count int64
		db.Model(&models.ListInvitation{}).Where("id = ?", invitation.ID).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("responded invitation cannot be revoked", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, invitePath(list.ID), aliceToken, map[string]string{
			"email": "bob@example.com",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var second models.ListInvitation
		decodeData(t, resp, &second)

		resp = doRequest(t, app, http.MethodPost,
			fmt.Sprintf("/api/v1/invitations/%d/respond", second.ID), bobToken, map[string]interface{}{
				"accept": true,
			})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = doRequest(t, app, http.MethodDelete,
			fmt.Sprintf("/api/v1/invitations/%d", second.ID), aliceToken, nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}
