package handlers

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veerly/veerly-api/services"
)

const (
	testGroupID      = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
	testInvitationID = "cccccccc-cccc-cccc-cccc-cccccccccccc"
)

// fakeAuth stands in for the JWT middleware in handler tests.
func fakeAuth(userID, email string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("user_email", email)
		c.Next()
	}
}

func newInvitationRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewInvitationHandler(db, services.NewEmailService("", "noreply@veerly.app", "http://localhost:5173"))
	router := gin.New()
	router.Use(fakeAuth(testUserID, "driver@veerly.app"))
	router.POST("/api/groups/invite", h.InviteUser)
	router.PUT("/api/groups/accept-invitation/:id", h.AcceptInvitation)
	router.PUT("/api/groups/reject-invitation/:id", h.RejectInvitation)
	return router, mock
}

func TestInviteUserRequiresOwnership(t *testing.T) {
	router, mock := newInvitationRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(")).
		WithArgs(testGroupID, testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	w := postJSON(router, "/api/groups/invite", gin.H{
		"groupId": testGroupID,
		"email":   "other@veerly.app",
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestInviteUnregisteredEmail(t *testing.T) {
	router, mock := newInvitationRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(")).
		WithArgs(testGroupID, testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE email = $1")).
		WithArgs("nobody@veerly.app").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := postJSON(router, "/api/groups/invite", gin.H{
		"groupId": testGroupID,
		"email":   "nobody@veerly.app",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "No user registered")
}

func TestInviteSelf(t *testing.T) {
	router, mock := newInvitationRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(")).
		WithArgs(testGroupID, testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE email = $1")).
		WithArgs("driver@veerly.app").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(testUserID))

	w := postJSON(router, "/api/groups/invite", gin.H{
		"groupId": testGroupID,
		"email":   "driver@veerly.app",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInviteExistingMember(t *testing.T) {
	router, mock := newInvitationRouter(t)
	invitedID := "dddddddd-dddd-dddd-dddd-dddddddddddd"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(")).
		WithArgs(testGroupID, testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE email = $1")).
		WithArgs("member@veerly.app").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(invitedID))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(")).
		WithArgs(testGroupID, invitedID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	w := postJSON(router, "/api/groups/invite", gin.H{
		"groupId": testGroupID,
		"email":   "member@veerly.app",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already a member")
}

func TestAcceptInvitation(t *testing.T) {
	router, mock := newInvitationRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE group_invitations")).
		WithArgs(testInvitationID, testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"group_id"}).AddRow(testGroupID))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO group_members")).
		WithArgs(testGroupID, testUserID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/api/groups/accept-invitation/"+testInvitationID, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), testGroupID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptInvitationTwice(t *testing.T) {
	router, mock := newInvitationRouter(t)

	// Already flipped to accepted: the conditional UPDATE matches nothing.
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE group_invitations")).
		WithArgs(testInvitationID, testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"group_id"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/api/groups/accept-invitation/"+testInvitationID, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "already processed")
}

func TestRejectInvitation(t *testing.T) {
	router, mock := newInvitationRouter(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE group_invitations")).
		WithArgs(testInvitationID, testUserID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/api/groups/reject-invitation/"+testInvitationID, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRejectSomeoneElsesInvitation(t *testing.T) {
	router, mock := newInvitationRouter(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE group_invitations")).
		WithArgs(testInvitationID, testUserID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/api/groups/reject-invitation/"+testInvitationID, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
