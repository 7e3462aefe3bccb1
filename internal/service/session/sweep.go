package session

import (
	"context"
	"log"
	"time"
)

// sweepBatchSize 每次清理最多处理的会话数
const sweepBatchSize = 100

// SweepExpired 清理过期会话：先标记后清除
// 标记与清除都在会话锁的 TryLock 保护下逐个进行，正在续轮的会话直接跳过，
// 留给下一轮；标记本身再叠加带状态条件的单条 UPDATE，双保险
func (s *Service) SweepExpired(ctx context.Context) (marked, purged int64, err error) {
	now := time.Now()

	candidates, err := s.repo.Session.ListExpiredActive(now, sweepBatchSize)
	if err != nil {
		return 0, 0, err
	}

	for _, session := range candidates {
		ran, err := s.withSweepLock(session.ID, func() error {
			n, err := s.repo.Session.MarkAbandonedIfExpired(session.ID, now)
			marked += n
			return err
		})
		if ran && err != nil {
			log.Printf("Warning: failed to mark expired session %s: %v", session.ID, err)
		}
	}

	expired, err := s.repo.Session.ListExpiredAbandoned(now, sweepBatchSize)
	if err != nil {
		return marked, 0, err
	}

	for _, session := range expired {
		ran, err := s.withSweepLock(session.ID, func() error {
			return s.repo.Session.DeleteSession(session.ID)
		})
		if !ran {
			continue
		}
		if err != nil {
			log.Printf("Warning: failed to purge expired session %s: %v", session.ID, err)
			continue
		}
		purged++
		s.releaseLock(session.ID)
	}

	return marked, purged, nil
}

// withSweepLock 在 TryLock 保护下执行清理动作
// 会话锁被进行中的续轮持有时不执行，返回 ran=false
func (s *Service) withSweepLock(sessionID string, fn func() error) (ran bool, err error) {
	lock := s.sessionLock(sessionID)
	if !lock.TryLock() {
		return false, nil
	}
	defer lock.Unlock()
	return true, fn()
}

// Sweeper 周期性过期清理任务
type Sweeper struct {
	service  *Service
	interval time.Duration
}

// NewSweeper 创建清理任务
func NewSweeper(service *Service, interval time.Duration) *Sweeper {
	return &Sweeper{service: service, interval: interval}
}

// Run 按固定间隔执行清理，直到 ctx 取消
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Printf("Session sweeper started (interval: %s)", w.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("Session sweeper stopped")
			return
		case <-ticker.C:
			marked, purged, err := w.service.SweepExpired(ctx)
			if err != nil {
				log.Printf("Session sweep failed: %v", err)
				continue
			}
			if marked > 0 || purged > 0 {
				log.Printf("Session sweep: %d marked abandoned, %d purged", marked, purged)
			}
		}
	}
}
