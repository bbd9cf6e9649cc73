// internal/app/poller_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"homework_status_bot/internal/domain/homework"
	domainTelegram "homework_status_bot/internal/domain/telegram" // Import from domain
	"homework_status_bot/internal/infra/config"
	idb "homework_status_bot/internal/infra/database" // For ErrStateNotFound

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrorReportPrefix starts every failure report sent to the chat.
const ErrorReportPrefix = "Сбой в работе программы: "

// maxReportAttempts bounds delivery of a single failure report.
const maxReportAttempts = 2

// Fetcher returns the decoded homework API answer for a window starting at fromDate.
type Fetcher interface {
	GetAPIAnswer(ctx context.Context, fromDate int64) (any, error)
}

// LoopState is carried from one poll cycle to the next.
type LoopState struct {
	LastMessage string
	FromDate    int64
}

// StatusSnapshot describes the most recent poll cycle.
type StatusSnapshot struct {
	Cycles        int
	LastCycleID   string
	LastCycleAt   time.Time
	LastError     string
	LastErrorKind string
	LastMessage   string
	LastSentAt    time.Time
	FromDate      int64
	WindowPolicy  string
}

// Poller runs the fetch, validate, interpret and notify steps of one poll cycle.
// RunCycle is not safe for concurrent use; Status is.
type Poller struct {
	cfg            *config.AppConfig
	fetcher        Fetcher
	telegramClient domainTelegram.Client
	stateRepo      homework.Repository
	logger         *logrus.Entry
	now            func() time.Time

	mu     sync.RWMutex
	loop   LoopState
	status StatusSnapshot
}

func NewPoller(
	cfg *config.AppConfig,
	fetcher Fetcher,
	tc domainTelegram.Client,
	stateRepo homework.Repository,
	logger *logrus.Entry,
) *Poller {
	return &Poller{
		cfg:            cfg,
		fetcher:        fetcher,
		telegramClient: tc,
		stateRepo:      stateRepo,
		logger:         logger,
		now:            time.Now,
		status:         StatusSnapshot{WindowPolicy: cfg.WindowPolicy},
	}
}

// Init sets the first query window: the saved one under the advance policy,
// otherwise now minus the configured lookback.
func (p *Poller) Init(ctx context.Context) error {
	fromDate := p.now().Add(-p.cfg.InitialLookback).Unix()

	if p.cfg.WindowPolicy == config.WindowAdvance {
		saved, err := p.stateRepo.Load(ctx)
		switch {
		case err == nil:
			fromDate = saved.FromDate
			p.logger.WithField("from_date", fromDate).Info("Restored poll window")
		case errors.Is(err, idb.ErrStateNotFound):
			p.logger.WithField("from_date", fromDate).Info("No saved poll window, starting from lookback")
		default:
			return fmt.Errorf("failed to load poll state: %w", err)
		}
	}

	p.mu.Lock()
	p.loop.FromDate = fromDate
	p.status.FromDate = fromDate
	p.mu.Unlock()
	return nil
}

// CheckTokens verifies that every credential is present.
func (p *Poller) CheckTokens() error {
	missing := p.cfg.MissingTokens()
	if len(missing) == 0 {
		return nil
	}
	p.logger.WithFields(logrus.Fields{
		"severity": "critical",
		"missing":  missing,
	}).Error("Required credentials are missing")
	return fmt.Errorf("%w: %s", homework.ErrConfig, strings.Join(missing, ", "))
}

// RunCycle performs one poll cycle. Failures after the credential check are reported
// to the chat; the returned error is for the caller's logs only.
func (p *Poller) RunCycle(ctx context.Context) error {
	cycleID := uuid.NewString()
	start := p.now()
	log := p.logger.WithField("cycle_id", cycleID)
	log.Debug("Poll cycle started")

	err := p.runSteps(ctx, log)
	if err != nil {
		log.WithError(err).WithField("kind", homework.KindOf(err)).Error("Poll cycle failed")
		if !errors.Is(err, homework.ErrConfig) && ctx.Err() == nil {
			p.reportError(ctx, log, err)
		}
	} else {
		log.Debug("Poll cycle finished")
	}

	p.mu.Lock()
	p.status.Cycles++
	p.status.LastCycleID = cycleID
	p.status.LastCycleAt = start
	p.status.LastError = ""
	p.status.LastErrorKind = ""
	if err != nil {
		p.status.LastError = err.Error()
		p.status.LastErrorKind = homework.KindOf(err)
	}
	p.status.FromDate = p.loop.FromDate
	p.mu.Unlock()

	return err
}

func (p *Poller) runSteps(ctx context.Context, log *logrus.Entry) error {
	if err := p.CheckTokens(); err != nil {
		return err
	}

	p.mu.RLock()
	fromDate := p.loop.FromDate
	p.mu.RUnlock()

	answer, err := p.fetcher.GetAPIAnswer(ctx, fromDate)
	if err != nil {
		return err
	}

	record, err := homework.CheckResponse(answer)
	if err != nil {
		return err
	}

	message, err := homework.ParseStatus(record)
	if err != nil {
		return err
	}

	if err := p.notify(ctx, log, message); err != nil {
		return err
	}

	p.advanceWindow(ctx, log, record)
	return nil
}

// notify sends message unless it equals the last message delivered.
func (p *Poller) notify(ctx context.Context, log *logrus.Entry, message string) error {
	p.mu.RLock()
	duplicate := message == p.loop.LastMessage
	p.mu.RUnlock()

	if duplicate {
		log.Debug("Message unchanged since last send, skipping")
		return nil
	}
	return p.sendMessage(ctx, log, message)
}

func (p *Poller) sendMessage(ctx context.Context, log *logrus.Entry, message string) error {
	log.Info("Sending message to Telegram")
	if err := p.telegramClient.SendMessage(ctx, p.cfg.TelegramChatID, message); err != nil {
		return fmt.Errorf("%w: %w", homework.ErrNotify, err)
	}
	log.Info("Message sent")

	p.mu.Lock()
	p.loop.LastMessage = message
	p.status.LastMessage = message
	p.status.LastSentAt = p.now()
	p.mu.Unlock()
	return nil
}

// reportError tells the chat about a failed cycle, at most maxReportAttempts times.
// Delivery failures here are logged and dropped.
func (p *Poller) reportError(ctx context.Context, log *logrus.Entry, cycleErr error) {
	report := ErrorReportPrefix + cycleErr.Error()

	p.mu.RLock()
	duplicate := report == p.loop.LastMessage
	p.mu.RUnlock()
	if duplicate {
		log.Debug("Error report unchanged since last send, skipping")
		return
	}

	for attempt := 1; attempt <= maxReportAttempts; attempt++ {
		err := p.sendMessage(ctx, log, report)
		if err == nil {
			log.Info("Error report sent")
			return
		}
		log.WithError(err).WithField("attempt", attempt).Error("Failed to send error report")
		if ctx.Err() != nil {
			return
		}
	}
}

// advanceWindow moves from_date to just before the processed record's update time under the
// advance policy. The record stays inside the next window, so an unchanged status is suppressed
// as a duplicate instead of producing an empty response. Records without date_updated leave
// the window where it is.
func (p *Poller) advanceWindow(ctx context.Context, log *logrus.Entry, record homework.Record) {
	if p.cfg.WindowPolicy != config.WindowAdvance {
		return
	}

	updated, ok := homework.UpdatedAt(record)
	if !ok {
		log.Debug("Record has no date_updated, poll window unchanged")
		return
	}
	next := updated.Unix() - 1

	p.mu.Lock()
	if next <= p.loop.FromDate {
		p.mu.Unlock()
		return
	}
	p.loop.FromDate = next
	p.mu.Unlock()

	if err := p.stateRepo.Save(ctx, &homework.State{FromDate: next}); err != nil {
		log.WithError(err).Error("Failed to persist poll window")
		return
	}
	log.WithField("from_date", next).Debug("Poll window advanced")
}

// Status returns a copy of the latest cycle summary.
func (p *Poller) Status() StatusSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Loop returns a copy of the state carried between cycles.
func (p *Poller) Loop() LoopState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loop
}
