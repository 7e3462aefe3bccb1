package repository

import (
	"time"

	"github.com/ashwinyue/donor-ai/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository 邮件会话数据访问
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建会话仓库
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession 创建会话
func (r *SessionRepository) CreateSession(session *model.EmailSession) error {
	return r.db.Create(session).Error
}

// GetSessionByID 获取会话
func (r *SessionRepository) GetSessionByID(id string) (*model.EmailSession, error) {
	var session model.EmailSession
	err := r.db.Where("id = ?", id).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessionsByOwner 列出归属某组织/用户的会话
func (r *SessionRepository) ListSessionsByOwner(orgID, userID string, offset, limit int) ([]*model.EmailSession, error) {
	var sessions []*model.EmailSession
	err := r.db.Where("organization_id = ? AND user_id = ?", orgID, userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// UpdateSession 更新会话
func (r *SessionRepository) UpdateSession(session *model.EmailSession) error {
	return r.db.Save(session).Error
}

// DeleteSession 删除会话（级联删除消息与生成邮件）
func (r *SessionRepository) DeleteSession(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.EmailMessage{}, "session_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.GeneratedEmail{}, "session_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.EmailSession{}, "id = ?", id).Error
	})
}

// AppendTurn 在同一事务内追加一轮消息并保存会话变更
// 锁定会话行后从当前最大 idx 续排，保证 idx 在会话内严格递增且无空洞；
// 任一步失败则整轮回滚，不会留下半写入的消息
func (r *SessionRepository) AppendTurn(session *model.EmailSession, msgs ...*model.EmailMessage) error {
	if len(msgs) == 0 {
		return r.UpdateSession(session)
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var locked model.EmailSession
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", session.ID).
			First(&locked).Error; err != nil {
			return err
		}

		var maxIdx int
		row := tx.Model(&model.EmailMessage{}).
			Where("session_id = ?", session.ID).
			Select("COALESCE(MAX(idx), -1)").
			Row()
		if err := row.Scan(&maxIdx); err != nil {
			return err
		}

		for i, msg := range msgs {
			msg.Idx = maxIdx + 1 + i
			if err := tx.Create(msg).Error; err != nil {
				return err
			}
		}

		return tx.Save(session).Error
	})
}

// GetMessagesBySessionID 按 idx 升序获取会话消息
func (r *SessionRepository) GetMessagesBySessionID(sessionID string) ([]*model.EmailMessage, error) {
	var messages []*model.EmailMessage
	err := r.db.Where("session_id = ?", sessionID).Order("idx ASC").Find(&messages).Error
	return messages, err
}

// CountMessages 获取会话消息数
func (r *SessionRepository) CountMessages(sessionID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.EmailMessage{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count, err
}

// ListExpiredActive 列出已过期但仍为 active 的会话（待标记）
func (r *SessionRepository) ListExpiredActive(now time.Time, limit int) ([]*model.EmailSession, error) {
	var sessions []*model.EmailSession
	err := r.db.Where("status = ? AND expires_at < ?", model.SessionStatusActive, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// MarkAbandonedIfExpired 条件更新：仅当会话仍为 active 且已过期时标记为 abandoned
// 单条带条件的 UPDATE，不会覆盖并发中被 continue 更新过的会话
func (r *SessionRepository) MarkAbandonedIfExpired(id string, now time.Time) (int64, error) {
	result := r.db.Model(&model.EmailSession{}).
		Where("id = ? AND status = ? AND expires_at < ?", id, model.SessionStatusActive, now).
		Update("status", model.SessionStatusAbandoned)
	return result.RowsAffected, result.Error
}

// ListExpiredAbandoned 列出已过期且已标记 abandoned 的会话（待清除）
func (r *SessionRepository) ListExpiredAbandoned(now time.Time, limit int) ([]*model.EmailSession, error) {
	var sessions []*model.EmailSession
	err := r.db.Where("status = ? AND expires_at < ?", model.SessionStatusAbandoned, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}
