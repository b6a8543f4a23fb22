package utils

import (
	"context"
	"sync"
	"time"

	"github.com/fansqz/go-tracer/utils/gosync"
	"github.com/sirupsen/logrus"
)

// TimeoutManager 一个计时器
// 如果在timeout时间内没有执行reset命令，就会执行fun函数
// Cancel 以后可以重新Start
type TimeoutManager struct {
	lock  sync.Mutex
	reset chan struct{}
	done  chan struct{}
}

// NewTimeoutManager 创建一个新的计时器实例
func NewTimeoutManager() *TimeoutManager {
	return &TimeoutManager{}
}

// Start 开始计时，timeout<=0时不计时
// 计时器已经在运行时只重置计时
func (t *TimeoutManager) Start(ctx context.Context, timeout time.Duration, option func()) {
	if timeout <= 0 {
		return
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.done != nil {
		t.notifyReset()
		return
	}
	t.reset = make(chan struct{}, 1)
	t.done = make(chan struct{})
	timer := time.NewTimer(timeout)
	reset, done := t.reset, t.done
	gosync.Go(ctx, func(ctx context.Context) {
		defer timer.Stop()
		for {
			select {
			case <-timer.C:
				logrus.Infof("[TimeoutManager] timer expired, performing action")
				t.finish(done)
				option()
				return
			case <-reset:
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(timeout)
			case <-done:
				logrus.Debugf("[TimeoutManager] cancel")
				return
			case <-ctx.Done():
				t.finish(done)
				return
			}
		}
	})
}

// finish 计时结束，之后可以重新Start
func (t *TimeoutManager) finish(done chan struct{}) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.done == done {
		t.done = nil
		t.reset = nil
	}
}

// Reset 重置计时器
func (t *TimeoutManager) Reset() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.notifyReset()
}

func (t *TimeoutManager) notifyReset() {
	if t.reset == nil {
		return
	}
	select {
	case t.reset <- struct{}{}:
	default:
	}
}

// Cancel 取消计时，可以重复调用
func (t *TimeoutManager) Cancel() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.done == nil {
		return
	}
	close(t.done)
	t.done = nil
	t.reset = nil
}
