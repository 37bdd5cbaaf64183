package service

import (
	"TradeTalent/internal/pkg/metrics"
	"sync"
	"time"
)

type armedTimer struct {
	timer *time.Timer
	seq   uint64
}

// DeactivationTimer 按用户维护的可取消延时停用任务，每个用户至多一个
type DeactivationTimer struct {
	mu      sync.Mutex
	timers  map[uint64]*armedTimer
	seq     uint64
	stopped bool
	handler func(userID uint64)
}

func NewDeactivationTimer(handler func(userID uint64)) *DeactivationTimer {
	return &DeactivationTimer{
		timers:  make(map[uint64]*armedTimer),
		handler: handler,
	}
}

// Arm delay 后触发 handler，已存在的定时器会被替换
func (s *DeactivationTimer) Arm(userID uint64, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if old, ok := s.timers[userID]; ok {
		old.timer.Stop()
	}

	s.seq++
	seq := s.seq
	s.timers[userID] = &armedTimer{
		seq: seq,
		timer: time.AfterFunc(delay, func() {
			s.fire(userID, seq)
		}),
	}
	metrics.ArmedTimers.Set(float64(len(s.timers)))
}

// Disarm 取消未触发的定时器，已触发时为空操作
func (s *DeactivationTimer) Disarm(userID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	armed, ok := s.timers[userID]
	if !ok {
		return false
	}
	armed.timer.Stop()
	delete(s.timers, userID)
	metrics.ArmedTimers.Set(float64(len(s.timers)))
	return true
}

func (s *DeactivationTimer) Pending(userID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[userID]
	return ok
}

func (s *DeactivationTimer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop 停止全部定时器，之后的 Arm 不再生效
func (s *DeactivationTimer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, armed := range s.timers {
		armed.timer.Stop()
		delete(s.timers, userID)
	}
	s.stopped = true
	metrics.ArmedTimers.Set(0)
}

func (s *DeactivationTimer) fire(userID uint64, seq uint64) {
	s.mu.Lock()
	armed, ok := s.timers[userID]
	// 已被取消或替换
	if !ok || armed.seq != seq {
		s.mu.Unlock()
		return
	}
	delete(s.timers, userID)
	metrics.ArmedTimers.Set(float64(len(s.timers)))
	s.mu.Unlock()

	s.handler(userID)
}
