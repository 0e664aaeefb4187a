package outbox

import (
	"context"
	"fmt"
)

// ReplayStore 重放需要的存储操作
type ReplayStore interface {
	GetEventByID(ctx context.Context, eventID int64) (*Event, error)
	GetFailedEvents(ctx context.Context, limit int) ([]*Event, error)
	ReplayEvent(ctx context.Context, eventID int64) error
}

// ReplayService 提供重放 Outbox 事件的服务
// 重放只是把事件重新放回 pending 队列，实际发布仍由 Dispatcher 完成
type ReplayService struct {
	repo ReplayStore
}

// NewReplayService 创建新的 ReplayService
func NewReplayService(repo ReplayStore) *ReplayService {
	return &ReplayService{repo: repo}
}

// ListFailedEvents 返回最近的失败事件
func (s *ReplayService) ListFailedEvents(ctx context.Context, limit int) ([]*Event, error) {
	events, err := s.repo.GetFailedEvents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed events: %w", err)
	}
	return events, nil
}

// ReplayEvent 重放指定的事件
func (s *ReplayService) ReplayEvent(ctx context.Context, eventID int64) (*Event, error) {
	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ReplayEvent(ctx, eventID); err != nil {
		return nil, err
	}
	event.Status = StatusPending
	event.RetryCount = 0
	event.NextRetryAt = nil
	return event, nil
}

// ReplayFailedEvents 重放所有失败的事件，返回成功重置的数量
func (s *ReplayService) ReplayFailedEvents(ctx context.Context, limit int) (int, error) {
	events, err := s.ListFailedEvents(ctx, limit)
	if err != nil {
		return 0, err
	}

	successCount := 0
	for _, event := range events {
		if err := s.repo.ReplayEvent(ctx, event.ID); err != nil {
			// 记录错误但继续处理其他事件
			continue
		}
		successCount++
	}

	return successCount, nil
}
