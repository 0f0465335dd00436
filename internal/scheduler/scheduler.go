// Package scheduler runs the periodic maintenance jobs. Today that is a
// single daily job flipping the locked flag on DEPOSIT accounts whose
// term has matured.
package scheduler

import (
	"context"
	"time"

	"bankledger/internal/service"
	"bankledger/internal/storage"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler owns the cron instance and the jobs registered on it.
type Scheduler struct {
	accounts *service.AccountService
	store    storage.Store
	sender   DepositNotifier
	log      *logrus.Logger
	cron     *cron.Cron
}

// DepositNotifier tells an owner their deposit matured. May be nil.
type DepositNotifier interface {
	SendDepositUnlockedNotice(to, username, accountNumber string, unlockDate time.Time) error
}

// New creates the scheduler with the daily deposit-unlock job registered.
func New(accounts *service.AccountService, store storage.Store, sender DepositNotifier, log *logrus.Logger) *Scheduler {
	s := &Scheduler{
		accounts: accounts,
		store:    store,
		sender:   sender,
		log:      log,
		cron:     cron.New(),
	}
	s.cron.AddFunc("@daily", s.unlockMaturedDeposits)
	return s
}

// Start begins running jobs on their schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started")
}

// Stop waits for running jobs and stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Scheduler stopped")
}

func (s *Scheduler) unlockMaturedDeposits() {
	ctx := context.Background()
	unlocked, err := s.accounts.UnlockMaturedDeposits(ctx, time.Now().UTC())
	if err != nil {
		s.log.Errorf("Deposit unlock job failed: %v", err)
		return
	}

	if s.sender == nil {
		return
	}
	for _, account := range unlocked {
		owner, err := s.store.User(ctx, account.OwnerID)
		if err != nil {
			s.log.Errorf("Failed to load owner of account %s: %v", account.ID, err)
			continue
		}
		if err := s.sender.SendDepositUnlockedNotice(owner.Email, owner.Username, account.AccountNumber, account.DepositUnlockDate); err != nil {
			s.log.Errorf("Failed to notify %s about unlocked deposit: %v", owner.Email, err)
		}
	}
}
