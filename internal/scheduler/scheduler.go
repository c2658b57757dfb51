package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vrcmeet/meetbot/internal/config"
	"github.com/vrcmeet/meetbot/internal/invitation"
	"github.com/vrcmeet/meetbot/internal/ticket"
)

// ticketSweepSchedule runs the deletion sweep every minute so closed
// channels disappear close to their scheduled time.
const ticketSweepSchedule = "* * * * *"

// Scheduler runs the recurring maintenance jobs: auto-closing expired
// events, sending start reminders, and deleting closed ticket channels.
type Scheduler struct {
	cron    *cron.Cron
	session *discordgo.Session
	cfg     *config.Config
	log     *zap.Logger

	invSvc     *invitation.Service
	invHandler *invitation.Handler
	ticketH    *ticket.Handler
}

// New creates a scheduler with all jobs registered according to the feature
// toggles. Call Start to begin running them.
func New(
	session *discordgo.Session,
	cfg *config.Config,
	invSvc *invitation.Service,
	invHandler *invitation.Handler,
	ticketH *ticket.Handler,
	log *zap.Logger,
) (*Scheduler, error) {
	s := &Scheduler{
		cron:       cron.New(),
		session:    session,
		cfg:        cfg,
		log:        log.Named("scheduler"),
		invSvc:     invSvc,
		invHandler: invHandler,
		ticketH:    ticketH,
	}

	if cfg.AutoCloseEnabled {
		if _, err := s.cron.AddFunc(cfg.AutoCloseSchedule, s.runAutoClose); err != nil {
			return nil, fmt.Errorf("invalid auto-close schedule %q: %w", cfg.AutoCloseSchedule, err)
		}
	}
	if cfg.ReminderEnabled {
		if _, err := s.cron.AddFunc(cfg.ReminderSchedule, s.runReminders); err != nil {
			return nil, fmt.Errorf("invalid reminder schedule %q: %w", cfg.ReminderSchedule, err)
		}
	}
	if cfg.TicketEnabled {
		if _, err := s.cron.AddFunc(ticketSweepSchedule, s.runTicketSweep); err != nil {
			return nil, fmt.Errorf("invalid ticket sweep schedule: %w", err)
		}
	}

	return s, nil
}

// Start begins running the registered jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started",
		zap.Bool("autoClose", s.cfg.AutoCloseEnabled),
		zap.Bool("reminders", s.cfg.ReminderEnabled),
		zap.Bool("ticketSweep", s.cfg.TicketEnabled))
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// runAutoClose completes every open event past its end time and re-renders
// its announcement with the buttons disabled.
func (s *Scheduler) runAutoClose() {
	ctx := context.Background()
	closed, err := s.invSvc.AutoCloseDue(ctx, time.Now())
	if err != nil {
		s.log.Error("auto-close run failed", zap.Error(err))
		return
	}

	for _, inv := range closed {
		s.invHandler.Refresh(s.session, inv.ID)
		if _, err := s.session.ChannelEdit(inv.ThreadID, &discordgo.ChannelEdit{
			Archived: archive(),
		}); err != nil {
			s.log.Warn("failed to archive completed thread",
				zap.String("invitationId", inv.ID), zap.Error(err))
		}
	}
}

// runReminders DMs joined participants of events entering the reminder
// window, once per event.
func (s *Scheduler) runReminders() {
	ctx := context.Background()
	due, err := s.invSvc.RemindersDue(ctx, time.Now(), s.cfg.ReminderLead)
	if err != nil {
		s.log.Error("reminder run failed", zap.Error(err))
		return
	}

	for _, inv := range due {
		parts, err := s.invSvc.Participants(ctx, inv.ID)
		if err != nil {
			s.log.Error("failed to load participants for reminder",
				zap.String("invitationId", inv.ID), zap.Error(err))
			continue
		}

		sent := 0
		for _, p := range parts {
			if p.Status != invitation.ParticipantJoined {
				continue
			}
			if s.dm(p.UserID, fmt.Sprintf("Reminder: **%s** starts <t:%d:R> in **%s**. See you there!",
				inv.EventName, inv.StartTime.Unix(), inv.WorldName)) {
				sent++
			}
		}

		if err := s.invSvc.MarkReminded(ctx, inv.ID, time.Now()); err != nil {
			s.log.Error("failed to mark invitation reminded",
				zap.String("invitationId", inv.ID), zap.Error(err))
			continue
		}
		s.log.Info("reminders sent",
			zap.String("invitationId", inv.ID),
			zap.Int("sent", sent))
	}
}

// runTicketSweep deletes ticket channels whose scheduled time has passed
func (s *Scheduler) runTicketSweep() {
	s.ticketH.SweepDeletions(context.Background(), s.session)
}

func (s *Scheduler) dm(userID, content string) bool {
	ch, err := s.session.UserChannelCreate(userID)
	if err != nil {
		s.log.Warn("failed to open DM channel",
			zap.String("userId", userID), zap.Error(err))
		return false
	}
	if _, err := s.session.ChannelMessageSend(ch.ID, content); err != nil {
		s.log.Warn("failed to send reminder DM",
			zap.String("userId", userID), zap.Error(err))
		return false
	}
	return true
}

func archive() *bool {
	b := true
	return &b
}
