package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/veerly/veerly-api/middleware"
	"github.com/veerly/veerly-api/models"
	"github.com/veerly/veerly-api/services"
)

type CourseHandler struct {
	DB      *sql.DB
	Courses *services.CourseService
	Groups  *services.GroupService
	Email   *services.EmailService
	WS      *WSHandler
}

func NewCourseHandler(db *sql.DB, email *services.EmailService, ws *WSHandler) *CourseHandler {
	return &CourseHandler{
		DB:      db,
		Courses: services.NewCourseService(db),
		Groups:  services.NewGroupService(db),
		Email:   email,
		WS:      ws,
	}
}

func courseToMap(course models.Course) map[string]interface{} {
	m := map[string]interface{}{
		"id":                 course.ID,
		"client_name":        course.ClientName,
		"client_number":      course.ClientNumber,
		"date":               course.Date,
		"departure_location": course.DepartureLocation,
		"arrival_location":   course.ArrivalLocation,
		"schedule":           course.Schedule,
		"vehicle_type":       course.VehicleType,
		"number_of_people":   course.NumberOfPeople,
		"number_of_bags":     course.NumberOfBags,
		"bag_type":           course.BagType,
		"additional_notes":   course.AdditionalNotes,
		"status":             course.Status,
		"created_at":         course.CreatedAt,
	}
	if course.GroupID.Valid {
		m["group_id"] = course.GroupID.String
	}
	if course.UserID.Valid {
		m["user_id"] = course.UserID.String
	}
	if course.StartTime.Valid {
		m["start_time"] = course.StartTime.Time
	}
	if course.EndTime.Valid {
		m["end_time"] = course.EndTime.Time
	}
	if course.Price.Valid {
		m["price"] = course.Price.String
	}
	return m
}

const courseColumns = `id, client_name, client_number, date, departure_location, arrival_location,
		       schedule, vehicle_type, number_of_people, number_of_bags,
		       COALESCE(bag_type, ''), COALESCE(additional_notes, ''),
		       group_id, user_id, status, start_time, end_time, price, created_at`

func scanCourse(rows *sql.Rows) (models.Course, error) {
	var course models.Course
	err := rows.Scan(&course.ID, &course.ClientName, &course.ClientNumber, &course.Date,
		&course.DepartureLocation, &course.ArrivalLocation, &course.Schedule,
		&course.VehicleType, &course.NumberOfPeople, &course.NumberOfBags,
		&course.BagType, &course.AdditionalNotes,
		&course.GroupID, &course.UserID, &course.Status,
		&course.StartTime, &course.EndTime, &course.Price, &course.CreatedAt)
	return course, err
}

// ============================================================================
// PERSONAL COURSE POOL (legacy, ungrouped)
// ============================================================================

// GetCourses lists the caller's ungrouped courses. Rows with no owner are
// included for compatibility with pre-account data.
func (h *CourseHandler) GetCourses(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT `+courseColumns+`
		FROM courses
		WHERE group_id IS NULL AND (user_id = $1 OR user_id IS NULL)
		ORDER BY date DESC, schedule ASC
	`, userID)

	if err != nil {
		log.Printf("Error fetching courses: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch courses"})
		return
	}
	defer rows.Close()

	courses := []map[string]interface{}{}
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			continue
		}
		courses = append(courses, courseToMap(course))
	}

	c.JSON(http.StatusOK, courses)
}

func (h *CourseHandler) AddCourse(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All required fields must be filled"})
		return
	}

	var courseID string
	err := h.DB.QueryRow(`
		INSERT INTO courses (
			client_name, client_number, date, departure_location, arrival_location,
			schedule, vehicle_type, number_of_people, number_of_bags, bag_type, additional_notes, user_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, req.ClientName, req.ClientNumber, req.Date, req.DepartureLocation, req.ArrivalLocation,
		req.Schedule, req.VehicleType, req.NumberOfPeople, req.NumberOfBags,
		req.BagType, req.AdditionalNotes, userID).Scan(&courseID)

	if err != nil {
		log.Printf("Error adding course: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add course"})
		return
	}

	log.Printf("✅ Course %s added by user %s", courseID, userID)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Course added successfully",
		"id":      courseID,
	})
}

// DeleteCourse removes an ungrouped course. The ownership predicate is
// feature-flagged to match deployments that predate per-user courses.
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	userID := middleware.GetUserID(c)
	courseID := c.Param("id")

	var result sql.Result
	var err error

	if os.Getenv("CHECK_USER_OWNERSHIP") == "true" {
		result, err = h.DB.Exec(`
			DELETE FROM courses
			WHERE id = $1 AND group_id IS NULL AND (user_id = $2 OR user_id IS NULL)
		`, courseID, userID)
	} else {
		result, err = h.DB.Exec(`
			DELETE FROM courses WHERE id = $1 AND group_id IS NULL
		`, courseID)
	}

	if err != nil {
		log.Printf("Error deleting course %s: %v", courseID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete course"})
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found or not authorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Course deleted successfully"})
}

// ============================================================================
// GROUP COURSE POOL
// ============================================================================

func (h *CourseHandler) requireGroupAccess(c *gin.Context, groupID, userID string) bool {
	hasAccess, err := h.Groups.HasAccess(groupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check access"})
		return false
	}
	if !hasAccess {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return false
	}
	return true
}

func (h *CourseHandler) GetGroupCourses(c *gin.Context) {
	userID := middleware.GetUserID(c)
	groupID := c.Param("groupId")

	if !h.requireGroupAccess(c, groupID, userID) {
		return
	}

	rows, err := h.DB.Query(`
		SELECT `+courseColumns+`
		FROM courses
		WHERE group_id = $1
		ORDER BY date DESC, schedule ASC
	`, groupID)

	if err != nil {
		log.Printf("Error fetching group courses: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch courses"})
		return
	}
	defer rows.Close()

	courses := []map[string]interface{}{}
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			continue
		}
		courses = append(courses, courseToMap(course))
	}

	c.JSON(http.StatusOK, courses)
}

// GetGroupCoursesByStatus buckets the group's courses for the board view,
// with the assigned driver's name joined in.
func (h *CourseHandler) GetGroupCoursesByStatus(c *gin.Context) {
	userID := middleware.GetUserID(c)
	groupID := c.Param("groupId")

	if !h.requireGroupAccess(c, groupID, userID) {
		return
	}

	rows, err := h.DB.Query(`
		SELECT c.id, c.client_name, c.client_number, c.date, c.departure_location, c.arrival_location,
		       c.schedule, c.vehicle_type, c.number_of_people, c.number_of_bags,
		       COALESCE(c.bag_type, ''), COALESCE(c.additional_notes, ''),
		       c.group_id, c.user_id, c.status, c.start_time, c.end_time, c.price, c.created_at,
		       COALESCE(u.first_name, ''), COALESCE(u.last_name, '')
		FROM courses c
		LEFT JOIN users u ON c.user_id = u.id
		WHERE c.group_id = $1
		ORDER BY c.date DESC, c.schedule ASC
	`, groupID)

	if err != nil {
		log.Printf("Error fetching group courses by status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch courses"})
		return
	}
	defer rows.Close()

	buckets := map[string][]map[string]interface{}{
		"available":   {},
		"assigned":    {},
		"in_progress": {},
		"completed":   {},
	}

	bucketFor := map[string]string{
		models.StatusAvailable:  "available",
		models.StatusAssigned:   "assigned",
		models.StatusInProgress: "in_progress",
		models.StatusCompleted:  "completed",
	}

	for rows.Next() {
		var course models.Course
		var driverFirstName, driverLastName string
		err := rows.Scan(&course.ID, &course.ClientName, &course.ClientNumber, &course.Date,
			&course.DepartureLocation, &course.ArrivalLocation, &course.Schedule,
			&course.VehicleType, &course.NumberOfPeople, &course.NumberOfBags,
			&course.BagType, &course.AdditionalNotes,
			&course.GroupID, &course.UserID, &course.Status,
			&course.StartTime, &course.EndTime, &course.Price, &course.CreatedAt,
			&driverFirstName, &driverLastName)
		if err != nil {
			continue
		}

		m := courseToMap(course)
		if course.UserID.Valid {
			m["driver_first_name"] = driverFirstName
			m["driver_last_name"] = driverLastName
		}

		bucket, ok := bucketFor[course.Status]
		if !ok {
			bucket = "available"
		}
		buckets[bucket] = append(buckets[bucket], m)
	}

	c.JSON(http.StatusOK, buckets)
}

// GetGroupDrivers returns the member roster and per-status course counts.
// Owner only.
func (h *CourseHandler) GetGroupDrivers(c *gin.Context) {
	userID := middleware.GetUserID(c)
	groupID := c.Param("groupId")

	isOwner, err := h.Groups.IsOwner(groupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check ownership"})
		return
	}
	if !isOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the group owner can view the driver roster"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT u.id, u.email, COALESCE(u.first_name, ''), COALESCE(u.last_name, ''),
		       COALESCE(u.vehicle_type, ''), COALESCE(u.capacity, 0)
		FROM group_members gm
		INNER JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1
		ORDER BY u.last_name ASC, u.first_name ASC
	`, groupID)

	if err != nil {
		log.Printf("Error fetching drivers for group %s: %v", groupID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch drivers"})
		return
	}
	defer rows.Close()

	drivers := []map[string]interface{}{}
	for rows.Next() {
		var id, email, firstName, lastName, vehicleType string
		var capacity int
		if err := rows.Scan(&id, &email, &firstName, &lastName, &vehicleType, &capacity); err != nil {
			continue
		}
		drivers = append(drivers, map[string]interface{}{
			"id":           id,
			"email":        email,
			"first_name":   firstName,
			"last_name":    lastName,
			"vehicle_type": vehicleType,
			"capacity":     capacity,
		})
	}

	stats := map[string]int{}
	statRows, err := h.DB.Query(`
		SELECT status, COUNT(*)
		FROM courses
		WHERE group_id = $1
		GROUP BY status
	`, groupID)

	if err == nil {
		defer statRows.Close()
		for statRows.Next() {
			var status string
			var count int
			if err := statRows.Scan(&status, &count); err != nil {
				continue
			}
			stats[status] = count
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"drivers": drivers,
		"stats":   stats,
	})
}

func (h *CourseHandler) AddGroupCourse(c *gin.Context) {
	userID := middleware.GetUserID(c)
	groupID := c.Param("groupId")

	if !h.requireGroupAccess(c, groupID, userID) {
		return
	}

	var req models.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All required fields must be filled"})
		return
	}

	var courseID string
	err := h.DB.QueryRow(`
		INSERT INTO courses (
			client_name, client_number, date, departure_location, arrival_location,
			schedule, vehicle_type, number_of_people, number_of_bags, bag_type, additional_notes,
			group_id, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, req.ClientName, req.ClientNumber, req.Date, req.DepartureLocation, req.ArrivalLocation,
		req.Schedule, req.VehicleType, req.NumberOfPeople, req.NumberOfBags,
		req.BagType, req.AdditionalNotes, groupID, models.StatusAvailable).Scan(&courseID)

	if err != nil {
		log.Printf("Error adding group course: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add course"})
		return
	}

	log.Printf("✅ Course %s added to group %s by user %s", courseID, groupID, userID)
	h.WS.BroadcastCourseUpdate(groupID, "course_created", courseID, userID)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Course added successfully",
		"id":      courseID,
	})
}

func (h *CourseHandler) DeleteGroupCourse(c *gin.Context) {
	userID := middleware.GetUserID(c)
	groupID := c.Param("groupId")
	courseID := c.Param("courseId")

	if !h.requireGroupAccess(c, groupID, userID) {
		return
	}

	err := h.Courses.DeleteGroupCourse(courseID, groupID, userID)
	if err == services.ErrCourseNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found or not authorized"})
		return
	}
	if err != nil {
		log.Printf("Error deleting course %s: %v", courseID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete course"})
		return
	}

	h.WS.BroadcastCourseUpdate(groupID, "course_deleted", courseID, userID)

	c.JSON(http.StatusOK, gin.H{"message": "Course deleted successfully"})
}

// ============================================================================
// LIFECYCLE TRANSITIONS
// ============================================================================

func (h *CourseHandler) transition(c *gin.Context, event string,
	apply func(courseID, userID string) (string, error)) {
	userID := middleware.GetUserID(c)
	courseID := c.Param("id")

	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	groupID, err := apply(courseID, userID)
	if err == services.ErrCourseNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found or not authorized"})
		return
	}
	if err != nil {
		log.Printf("Error on course %s %s: %v", courseID, event, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update course"})
		return
	}

	log.Printf("✅ Course %s %s by user %s", courseID, event, userID)
	h.WS.BroadcastCourseUpdate(groupID, "course_"+event, courseID, userID)

	c.JSON(http.StatusOK, gin.H{"message": "Course updated successfully"})
}

func (h *CourseHandler) AssignCourse(c *gin.Context) {
	h.transition(c, "assigned", h.Courses.Assign)
}

func (h *CourseHandler) UnassignCourse(c *gin.Context) {
	h.transition(c, "unassigned", h.Courses.Unassign)
}

func (h *CourseHandler) StartCourse(c *gin.Context) {
	h.transition(c, "started", h.Courses.Start)
}

func (h *CourseHandler) CompleteCourse(c *gin.Context) {
	h.transition(c, "completed", h.Courses.Complete)
}

// ============================================================================
// RECEIPT
// ============================================================================

func (h *CourseHandler) fetchReceipt(courseID, userID string) (models.Receipt, error) {
	var receipt models.Receipt
	var price sql.NullString

	// Access is embedded in the query: the caller must be the group owner, a
	// group member, or the owner of an ungrouped course.
	err := h.DB.QueryRow(`
		SELECT c.id, c.client_name, c.client_number, TO_CHAR(c.date, 'YYYY-MM-DD'), c.schedule,
		       c.departure_location, c.arrival_location, c.vehicle_type,
		       c.number_of_people, c.number_of_bags, c.status, c.price,
		       COALESCE(u.first_name, ''), COALESCE(u.last_name, ''),
		       COALESCE(g.group_name, '')
		FROM courses c
		LEFT JOIN users u ON c.user_id = u.id
		LEFT JOIN groups g ON c.group_id = g.id
		WHERE c.id = $1
		  AND (
			g.user_id = $2
			OR EXISTS(SELECT 1 FROM group_members gm WHERE gm.group_id = c.group_id AND gm.user_id = $2)
			OR (c.group_id IS NULL AND c.user_id = $2)
		  )
	`, courseID, userID).Scan(
		&receipt.ID, &receipt.ClientName, &receipt.ClientNumber, &receipt.Date, &receipt.Schedule,
		&receipt.DepartureLocation, &receipt.ArrivalLocation, &receipt.VehicleType,
		&receipt.NumberOfPeople, &receipt.NumberOfBags, &receipt.Status, &price,
		&receipt.DriverFirstName, &receipt.DriverLastName, &receipt.GroupName,
	)

	if err != nil {
		return receipt, err
	}
	if price.Valid {
		receipt.Price = &price.String
	}
	return receipt, nil
}

// GetReceipt projects a course with its driver and group into the booking
// receipt payload. Price may be null; the client blocks printing until one
// is set.
func (h *CourseHandler) GetReceipt(c *gin.Context) {
	userID := middleware.GetUserID(c)
	courseID := c.Param("id")

	receipt, err := h.fetchReceipt(courseID, userID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found or not authorized"})
		return
	}
	if err != nil {
		log.Printf("Error fetching receipt for course %s: %v", courseID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch receipt"})
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// SendReceipt stores the caller-supplied price on the course, then emails
// the receipt to the caller's own address.
func (h *CourseHandler) SendReceipt(c *gin.Context) {
	userID := middleware.GetUserID(c)
	userEmail := middleware.GetUserEmail(c)
	courseID := c.Param("id")

	var req models.SendReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price is required"})
		return
	}

	// The send-time price wins over whatever was stored before.
	result, err := h.DB.Exec(`
		UPDATE courses c
		SET price = $2::numeric
		FROM groups g
		WHERE c.id = $1 AND c.group_id = g.id
		  AND (
			g.user_id = $3
			OR EXISTS(SELECT 1 FROM group_members gm WHERE gm.group_id = c.group_id AND gm.user_id = $3)
		  )
	`, courseID, req.Price, userID)

	if err != nil {
		log.Printf("Error updating price for course %s: %v", courseID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update price"})
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found or not authorized"})
		return
	}

	receipt, err := h.fetchReceipt(courseID, userID)
	if err != nil {
		log.Printf("Error fetching receipt for course %s: %v", courseID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch receipt"})
		return
	}

	if err := h.Email.SendReceipt(userEmail, receipt); err != nil {
		log.Printf("⚠️ Receipt email for course %s failed: %v", courseID, err)
		c.JSON(http.StatusOK, gin.H{
			"message": "Price saved but email failed to send",
			"warning": "Please print the receipt manually",
		})
		return
	}

	log.Printf("✅ Receipt for course %s sent to %s", courseID, userEmail)

	c.JSON(http.StatusOK, gin.H{"message": "Receipt sent successfully"})
}
