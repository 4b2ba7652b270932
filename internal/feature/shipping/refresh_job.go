package shipping

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RefreshJob 定时提前刷新 token，后台请求基本不用等服务商
type RefreshJob struct {
	m       *Manager
	cron    *cron.Cron
	timeout time.Duration
}

func NewRefreshJob(m *Manager, schedule string) (*RefreshJob, error) {
	if schedule == "" {
		schedule = "@every 10m"
	}
	j := &RefreshJob{
		m:       m,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		timeout: m.cfg.Timeout,
	}
	if _, err := j.cron.AddFunc(schedule, j.Run); err != nil {
		return nil, err
	}
	return j, nil
}

// Run 执行一轮；没有存 token 时什么都不做
func (j *RefreshJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	t, err := j.m.store.Load(ctx)
	if err != nil {
		j.m.log.Warn("refresh job: load token", zap.Error(err))
		return
	}
	if t == nil {
		return
	}
	if t.ValidAt(j.m.now()) {
		return
	}
	if tok := j.m.GetAccessToken(ctx); tok == j.m.cfg.Placeholder {
		j.m.log.Warn("refresh job: shipping token could not be refreshed")
	}
}

func (j *RefreshJob) Start() { j.cron.Start() }

// Stop 等正在执行的一轮结束
func (j *RefreshJob) Stop() {
	<-j.cron.Stop().Done()
}
