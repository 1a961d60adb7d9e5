package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hembi12/whatbot/internal/metrics"
	"github.com/hembi12/whatbot/internal/models"
	"github.com/hembi12/whatbot/internal/services"
	"github.com/hembi12/whatbot/internal/storage"
)

// notifyTimeout bounds one quotation's email delivery
const notifyTimeout = 30 * time.Second

type notificationTask struct {
	id        string
	quotation *models.Quotation
	done      chan services.NotificationResult
}

// NotificationJob sends quotation emails from a bounded queue so webhook
// replies never wait on SMTP
type NotificationJob struct {
	store    storage.Store
	notifier services.Notifier
	metrics  *metrics.Recorder

	queue   chan notificationTask
	workers int

	mu        sync.RWMutex
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewNotificationJob creates a new notification job
func NewNotificationJob(store storage.Store, notifier services.Notifier, recorder *metrics.Recorder, queueSize, workers int) *NotificationJob {
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	return &NotificationJob{
		store:    store,
		notifier: notifier,
		metrics:  recorder,
		queue:    make(chan notificationTask, queueSize),
		workers:  workers,
	}
}

// Start launches the workers
func (n *NotificationJob) Start(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.isRunning {
		log.Println("Notification job already running")
		return
	}

	ctx, n.cancel = context.WithCancel(ctx)
	n.isRunning = true

	for i := 0; i < n.workers; i++ {
		n.wg.Add(1)
		go n.worker(ctx)
	}

	log.Printf("📬 Notification job started with %d workers", n.workers)
}

// Stop halts the workers and fails whatever is still queued
func (n *NotificationJob) Stop() {
	n.mu.Lock()
	if !n.isRunning {
		n.mu.Unlock()
		return
	}
	n.isRunning = false
	n.cancel()
	n.mu.Unlock()

	n.wg.Wait()

	dropped := 0
	for {
		select {
		case task := <-n.queue:
			n.finish(task, services.NotificationResult{
				QuotationID: task.quotation.ID,
				Errors:      []string{"notification job stopped"},
			})
			dropped++
		default:
			if dropped > 0 {
				log.Printf("⚠️ Notification job stopped with %d pending notifications", dropped)
			}
			log.Println("Notification job stopped")
			return
		}
	}
}

// Dispatch queues a quotation for notification. The returned channel
// receives one result and is closed; callers may ignore it.
func (n *NotificationJob) Dispatch(q *models.Quotation) <-chan services.NotificationResult {
	task := notificationTask{
		id:        uuid.NewString(),
		quotation: q,
		done:      make(chan services.NotificationResult, 1),
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	if !n.isRunning {
		n.finish(task, services.NotificationResult{QuotationID: q.ID, Errors: []string{"notification job not running"}})
		return task.done
	}

	select {
	case n.queue <- task:
		log.Printf("📬 Queued notifications for quotation #%d (job %s)", q.ID, task.id)
	default:
		log.Printf("⚠️ Notification queue full, dropping quotation #%d", q.ID)
		n.finish(task, services.NotificationResult{QuotationID: q.ID, Errors: []string{"notification queue full"}})
	}
	return task.done
}

func (n *NotificationJob) worker(ctx context.Context) {
	defer n.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-n.queue:
			n.finish(task, n.process(ctx, task))
		}
	}
}

func (n *NotificationJob) process(ctx context.Context, task notificationTask) (result services.NotificationResult) {
	q := task.quotation

	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Notification job %s panicked: %v", task.id, r)
			result = services.NotificationResult{QuotationID: q.ID, Errors: []string{fmt.Sprintf("panic: %v", r)}}
		}
	}()

	notifyCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	result = n.notifier.Notify(notifyCtx, q)
	result.QuotationID = q.ID

	n.metrics.ObserveNotification("client", result.ClientSent)
	n.metrics.ObserveNotification("team", result.TeamSent)

	log.Printf("📧 Quotation #%d notifications: client=%t team=%t",
		q.ID, result.ClientSent, result.TeamSent)
	if err := result.Err(); err != nil {
		log.Printf("⚠️ %v", err)
	}

	n.saveMetric(ctx, q.PhoneNumber, result)
	return result
}

func (n *NotificationJob) saveMetric(ctx context.Context, identity string, result services.NotificationResult) {
	if result.Errors == nil {
		result.Errors = []string{}
	}
	payload, err := json.Marshal(result)
	if err != nil {
		log.Printf("⚠️ Failed to encode emails_sent metric: %v", err)
		return
	}

	err = n.store.SaveMetric(ctx, &models.Metric{
		PhoneNumber: identity,
		Action:      models.MetricEmailsSent,
		Data:        string(payload),
	})
	if err != nil {
		log.Printf("⚠️ Failed to save emails_sent metric: %v", err)
	}
}

func (n *NotificationJob) finish(task notificationTask, result services.NotificationResult) {
	task.done <- result
	close(task.done)
}
