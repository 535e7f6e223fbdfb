package realtime

import (
	"github.com/google/uuid"
)

// Topic names. A session mutation invalidates both the owner's filtered view
// and the administrative all-sessions view.
const TopicSessionsAll = "chat.sessions"

func TopicUserSessions(userID uuid.UUID) string {
	return "chat.sessions.user." + userID.String()
}

func TopicSessionMessages(sessionID uuid.UUID) string {
	return "chat.messages." + sessionID.String()
}

func TopicNotifications(userID uuid.UUID) string {
	return "notifications." + userID.String()
}
