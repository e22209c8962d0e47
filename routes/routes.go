package routes

import (
	"database/sql"

	"github.com/veerly/veerly-api/handlers"
	"github.com/veerly/veerly-api/services"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes sets up public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, db *sql.DB) {
	authHandler := &handlers.AuthHandler{DB: db}

	rg.POST("/auth/register", authHandler.Register)
	rg.POST("/auth/login", authHandler.Login)
}

// SetupCourseRoutes sets up the protected course routes: the personal pool,
// the group pools and the lifecycle transitions.
func SetupCourseRoutes(rg *gin.RouterGroup, db *sql.DB, email *services.EmailService, ws *handlers.WSHandler) {
	h := handlers.NewCourseHandler(db, email, ws)

	// Personal pool
	rg.GET("/courses/get-courses", h.GetCourses)
	rg.POST("/courses/add-course", h.AddCourse)
	rg.DELETE("/courses/delete-course/:id", h.DeleteCourse)

	// Group pools
	rg.GET("/courses/group/:groupId", h.GetGroupCourses)
	rg.GET("/courses/group/:groupId/by-status", h.GetGroupCoursesByStatus)
	rg.GET("/courses/group/:groupId/drivers", h.GetGroupDrivers)
	rg.POST("/courses/group/:groupId", h.AddGroupCourse)
	rg.DELETE("/courses/group/:groupId/:courseId", h.DeleteGroupCourse)

	// Lifecycle
	rg.POST("/courses/:id/assign", h.AssignCourse)
	rg.POST("/courses/:id/unassign", h.UnassignCourse)
	rg.POST("/courses/:id/start", h.StartCourse)
	rg.POST("/courses/:id/complete", h.CompleteCourse)

	// Receipt
	rg.GET("/courses/:id/receipt", h.GetReceipt)
	rg.POST("/courses/:id/send-receipt", h.SendReceipt)
}

// SetupGroupRoutes sets up protected group and invitation routes.
func SetupGroupRoutes(rg *gin.RouterGroup, db *sql.DB, email *services.EmailService) {
	groupHandler := handlers.NewGroupHandler(db)
	invitationHandler := handlers.NewInvitationHandler(db, email)

	rg.GET("/groups/get-groups", groupHandler.GetGroups)
	rg.POST("/groups/add-group", groupHandler.AddGroup)
	rg.GET("/groups/get-group/:id", groupHandler.GetGroup)
	rg.PUT("/groups/update-group/:id", groupHandler.UpdateGroup)
	rg.DELETE("/groups/delete-group/:id", groupHandler.DeleteGroup)

	rg.POST("/groups/invite", invitationHandler.InviteUser)
	rg.GET("/groups/invitations", invitationHandler.GetInvitations)
	rg.PUT("/groups/accept-invitation/:id", invitationHandler.AcceptInvitation)
	rg.PUT("/groups/reject-invitation/:id", invitationHandler.RejectInvitation)
}

// SetupProfileRoutes sets up protected profile routes.
func SetupProfileRoutes(rg *gin.RouterGroup, db *sql.DB) {
	profileHandler := &handlers.ProfileHandler{DB: db}

	rg.GET("/profile/", profileHandler.GetProfile)
	rg.PUT("/profile/update", profileHandler.UpdateProfile)
	rg.PUT("/profile/update-password", profileHandler.UpdatePassword)
	rg.GET("/profile/course-history", profileHandler.GetCourseHistory)
	rg.POST("/profile/2fa/setup", profileHandler.SetupTOTP)
	rg.POST("/profile/2fa/verify", profileHandler.VerifyTOTP)
	rg.POST("/profile/2fa/disable", profileHandler.DisableTOTP)
}
