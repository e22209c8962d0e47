package handlers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
)

// WSHandler pushes course board updates to clients watching a group, so
// every driver sees assignments move without polling.
type WSHandler struct {
	M *melody.Melody
}

func NewWSHandler() *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 1024 * 1024

	// Keep-alive tuned for cloud proxies that drop idle connections
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleDisconnect(func(s *melody.Session) {
		groupID, _ := s.Get("group_id")
		log.Printf("🔌 Client disconnected from group: %v", groupID)
	})

	m.HandleError(func(s *melody.Session, err error) {
		log.Printf("❌ WebSocket Error: %v", err)
	})

	return &WSHandler{M: m}
}

// HandleWS upgrades the request and tags the session with the watched group.
func (h *WSHandler) HandleWS(c *gin.Context) {
	groupID := c.Param("id")

	h.M.HandleConnect(func(s *melody.Session) {
		s.Set("group_id", groupID)
		log.Printf("✅ Client connected to group: %s", groupID)
	})

	if err := h.M.HandleRequest(c.Writer, c.Request); err != nil {
		log.Printf("❌ Failed to upgrade websocket: %v", err)
	}
}

// BroadcastCourseUpdate signals every session watching the group that a
// course changed state.
func (h *WSHandler) BroadcastCourseUpdate(groupID, updateType, courseID, userID string) {
	msg, err := json.Marshal(gin.H{
		"type":      updateType,
		"course_id": courseID,
		"user":      userID,
	})
	if err != nil {
		return
	}

	err = h.M.BroadcastFilter(msg, func(q *melody.Session) bool {
		id, exists := q.Get("group_id")
		return exists && id == groupID
	})

	if err != nil {
		log.Printf("⚠️ Error broadcasting to group %s: %v", groupID, err)
	}
}
