package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

// SeqAfter selects messages positioned after a known sequence number
type SeqAfter struct {
	Seq int64
}

func (s SeqAfter) Apply(db *gorm.DB) *gorm.DB {
	if s.Seq <= 0 {
		return db
	}
	return db.Where("seq > ?", s.Seq)
}
