package services

import (
	"log"
	"sync"

	"anycastweb/models"
)

type JobKind int

const (
	JobInstall JobKind = iota
	JobRestart
	JobApplyRoute
	JobResetMail
)

func (k JobKind) String() string {
	switch k {
	case JobInstall:
		return "install"
	case JobRestart:
		return "restart"
	case JobApplyRoute:
		return "apply_route"
	case JobResetMail:
		return "reset_mail"
	}
	return "unknown"
}

// Job 后台任务，封闭变体，由工作协程池按类型分发
type Job interface {
	Kind() JobKind
}

type InstallJob struct {
	EntryPointID uint
	Payload      models.CreateEntryPointRequest
}

func (InstallJob) Kind() JobKind { return JobInstall }

type RestartJob struct {
	EntryPointID uint
}

func (RestartJob) Kind() JobKind { return JobRestart }

type ApplyRouteJob struct {
	RouteID uint
}

func (ApplyRouteJob) Kind() JobKind { return JobApplyRoute }

type ResetMailJob struct {
	Email string
	Token string
}

func (ResetMailJob) Kind() JobKind { return JobResetMail }

type Queue struct {
	jobs    chan Job
	workers int
	wg      sync.WaitGroup
	runner  *Runner
}

func NewQueue(runner *Runner, workers, size int) *Queue {
	return &Queue{
		jobs:    make(chan Job, size),
		workers: workers,
		runner:  runner,
	}
}

func (q *Queue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for job := range q.jobs {
				q.dispatch(job)
			}
		}()
	}
	log.Printf("✓ 任务队列启动，工作协程: %d", q.workers)
}

// Submit 提交任务，队列满时丢弃并记录日志
func (q *Queue) Submit(job Job) bool {
	select {
	case q.jobs <- job:
		return true
	default:
		log.Printf("[QUEUE] 队列已满，任务被丢弃: %s", job.Kind())
		return false
	}
}

// Stop 关闭队列并等待在途任务执行完毕
func (q *Queue) Stop() {
	close(q.jobs)
	q.wg.Wait()
}

func (q *Queue) dispatch(job Job) {
	switch j := job.(type) {
	case InstallJob:
		q.runner.RunInstall(j)
	case RestartJob:
		q.runner.RunRestart(j)
	case ApplyRouteJob:
		q.runner.ApplyRoute(j)
	case ResetMailJob:
		q.runner.SendResetMail(j)
	default:
		log.Printf("[QUEUE] 未知任务类型: %s", job.Kind())
	}
}
