package services

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veerly/veerly-api/models"
)

const (
	testCourseID = "11111111-1111-1111-1111-111111111111"
	testDriverID = "22222222-2222-2222-2222-222222222222"
	testGroupID  = "33333333-3333-3333-3333-333333333333"
)

func newCourseService(t *testing.T) (*CourseService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCourseService(db), mock
}

func TestAssignClaimsAvailableCourse(t *testing.T) {
	svc, mock := newCourseService(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE courses SET status = $3, user_id = $2")).
		WithArgs(testCourseID, testDriverID, models.StatusAssigned, models.StatusAvailable).
		WillReturnRows(sqlmock.NewRows([]string{"group_id"}).AddRow(testGroupID))

	groupID, err := svc.Assign(testCourseID, testDriverID)

	require.NoError(t, err)
	assert.Equal(t, testGroupID, groupID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignAlreadyTaken(t *testing.T) {
	svc, mock := newCourseService(t)

	// Another driver won the race: the conditional UPDATE matches no rows.
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE courses SET status = $3, user_id = $2")).
		WithArgs(testCourseID, testDriverID, models.StatusAssigned, models.StatusAvailable).
		WillReturnRows(sqlmock.NewRows([]string{"group_id"}))

	_, err := svc.Assign(testCourseID, testDriverID)

	assert.ErrorIs(t, err, ErrCourseNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnassignReleasesOwnCourse(t *testing.T) {
	svc, mock := newCourseService(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE courses SET status = $3, user_id = NULL")).
		WithArgs(testCourseID, testDriverID, models.StatusAvailable, models.StatusAssigned).
		WillReturnRows(sqlmock.NewRows([]string{"group_id"}).AddRow(testGroupID))

	groupID, err := svc.Unassign(testCourseID, testDriverID)

	require.NoError(t, err)
	assert.Equal(t, testGroupID, groupID)
}

func TestUnassignOtherDriversCourse(t *testing.T) {
	svc, mock := newCourseService(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE courses SET status = $3, user_id = NULL")).
		WithArgs(testCourseID, testDriverID, models.StatusAvailable, models.StatusAssigned).
		WillReturnRows(sqlmock.NewRows([]string{"group_id"}))

	_, err := svc.Unassign(testCourseID, testDriverID)

	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestStartAssignedCourse(t *testing.T) {
	svc, mock := newCourseService(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE courses SET status = $3, start_time = NOW()")).
		WithArgs(testCourseID, testDriverID, models.StatusInProgress, models.StatusAssigned).
		WillReturnRows(sqlmock.NewRows([]string{"group_id"}).AddRow(testGroupID))

	groupID, err := svc.Start(testCourseID, testDriverID)

	require.NoError(t, err)
	assert.Equal(t, testGroupID, groupID)
}

func TestStartSkippingAssignIsRejected(t *testing.T) {
	svc, mock := newCourseService(t)

	// Course is still Disponible: the status guard matches nothing.
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE courses SET status = $3, start_time = NOW()")).
		WithArgs(testCourseID, testDriverID, models.StatusInProgress, models.StatusAssigned).
		WillReturnRows(sqlmock.NewRows([]string{"group_id"}))

	_, err := svc.Start(testCourseID, testDriverID)

	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCompleteInProgressCourse(t *testing.T) {
	svc, mock := newCourseService(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE courses SET status = $3, end_time = NOW()")).
		WithArgs(testCourseID, testDriverID, models.StatusCompleted, models.StatusInProgress).
		WillReturnRows(sqlmock.NewRows([]string{"group_id"}).AddRow(testGroupID))

	groupID, err := svc.Complete(testCourseID, testDriverID)

	require.NoError(t, err)
	assert.Equal(t, testGroupID, groupID)
}

func TestCompleteTwiceSecondCallFails(t *testing.T) {
	svc, mock := newCourseService(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE courses SET status = $3, end_time = NOW()")).
		WithArgs(testCourseID, testDriverID, models.StatusCompleted, models.StatusInProgress).
		WillReturnRows(sqlmock.NewRows([]string{"group_id"}).AddRow(testGroupID))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE courses SET status = $3, end_time = NOW()")).
		WithArgs(testCourseID, testDriverID, models.StatusCompleted, models.StatusInProgress).
		WillReturnRows(sqlmock.NewRows([]string{"group_id"}))

	_, err := svc.Complete(testCourseID, testDriverID)
	require.NoError(t, err)

	_, err = svc.Complete(testCourseID, testDriverID)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestDeleteGroupCourseAsOwner(t *testing.T) {
	svc, mock := newCourseService(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses")).
		WithArgs(testCourseID, testGroupID, testDriverID, models.StatusAvailable, models.StatusAssigned).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.DeleteGroupCourse(testCourseID, testGroupID, testDriverID)

	assert.NoError(t, err)
}

func TestDeleteGroupCourseStartedByMember(t *testing.T) {
	svc, mock := newCourseService(t)

	// Members cannot delete a course once it is En cours.
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses")).
		WithArgs(testCourseID, testGroupID, testDriverID, models.StatusAvailable, models.StatusAssigned).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.DeleteGroupCourse(testCourseID, testGroupID, testDriverID)

	assert.ErrorIs(t, err, ErrCourseNotFound)
}
