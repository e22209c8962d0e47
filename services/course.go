package services

import (
	"database/sql"
	"errors"

	"github.com/veerly/veerly-api/models"
)

// ErrCourseNotFound covers every failed transition: unknown id, wrong
// status, wrong caller. Callers cannot tell which, on purpose.
var ErrCourseNotFound = errors.New("course not found or not authorized")

// CourseService applies course status transitions. Every transition is one
// conditional UPDATE whose WHERE clause re-checks the expected status (and
// driver where it matters), so concurrent duplicates resolve to exactly one
// winner without locks. A zero-row match is reported as ErrCourseNotFound;
// the caller re-fetches state, no retry is attempted.
type CourseService struct {
	DB *sql.DB
}

func NewCourseService(db *sql.DB) *CourseService {
	return &CourseService{DB: db}
}

// Assign claims an available course for the calling driver. The statement
// also embeds the group access predicate, so a non-member matches zero rows
// just like a wrong status would.
func (s *CourseService) Assign(courseID, userID string) (string, error) {
	var groupID string
	err := s.DB.QueryRow(`
		UPDATE courses SET status = $3, user_id = $2
		WHERE id = $1 AND status = $4 AND user_id IS NULL
		  AND group_id IS NOT NULL
		  AND EXISTS(
			SELECT 1 FROM groups g WHERE g.id = courses.group_id AND g.user_id = $2
			UNION
			SELECT 1 FROM group_members gm WHERE gm.group_id = courses.group_id AND gm.user_id = $2
		  )
		RETURNING group_id
	`, courseID, userID, models.StatusAssigned, models.StatusAvailable).Scan(&groupID)

	if err == sql.ErrNoRows {
		return "", ErrCourseNotFound
	}
	if err != nil {
		return "", err
	}
	return groupID, nil
}

// Unassign puts an assigned course back in the pool. Only the driver who
// holds it can let go of it.
func (s *CourseService) Unassign(courseID, userID string) (string, error) {
	var groupID string
	err := s.DB.QueryRow(`
		UPDATE courses SET status = $3, user_id = NULL
		WHERE id = $1 AND status = $4 AND user_id = $2
		RETURNING group_id
	`, courseID, userID, models.StatusAvailable, models.StatusAssigned).Scan(&groupID)

	if err == sql.ErrNoRows {
		return "", ErrCourseNotFound
	}
	if err != nil {
		return "", err
	}
	return groupID, nil
}

// Start moves an assigned course to in-progress and stamps start_time.
func (s *CourseService) Start(courseID, userID string) (string, error) {
	var groupID string
	err := s.DB.QueryRow(`
		UPDATE courses SET status = $3, start_time = NOW()
		WHERE id = $1 AND status = $4 AND user_id = $2
		RETURNING group_id
	`, courseID, userID, models.StatusInProgress, models.StatusAssigned).Scan(&groupID)

	if err == sql.ErrNoRows {
		return "", ErrCourseNotFound
	}
	if err != nil {
		return "", err
	}
	return groupID, nil
}

// Complete finishes an in-progress course and stamps end_time. The driver
// stays on the row so the receipt can name them.
func (s *CourseService) Complete(courseID, userID string) (string, error) {
	var groupID string
	err := s.DB.QueryRow(`
		UPDATE courses SET status = $3, end_time = NOW()
		WHERE id = $1 AND status = $4 AND user_id = $2
		RETURNING group_id
	`, courseID, userID, models.StatusCompleted, models.StatusInProgress).Scan(&groupID)

	if err == sql.ErrNoRows {
		return "", ErrCourseNotFound
	}
	if err != nil {
		return "", err
	}
	return groupID, nil
}

// DeleteGroupCourse removes a course from a group pool. The owner can delete
// any course; the assigned driver can delete their own as long as it has not
// started.
func (s *CourseService) DeleteGroupCourse(courseID, groupID, userID string) error {
	result, err := s.DB.Exec(`
		DELETE FROM courses
		WHERE id = $1 AND group_id = $2
		  AND (
			EXISTS(SELECT 1 FROM groups g WHERE g.id = $2 AND g.user_id = $3)
			OR (user_id = $3 AND status IN ($4, $5))
		  )
	`, courseID, groupID, userID, models.StatusAvailable, models.StatusAssigned)
	if err != nil {
		return err
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrCourseNotFound
	}
	return nil
}
