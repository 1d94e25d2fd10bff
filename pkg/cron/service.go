package cron

import (
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/HKUDS/seabot-go/pkg/config"
)

// Messenger is the slice of the SeaTalk client announcements need.
type Messenger interface {
	SendGroupText(groupID, content, threadID string) error
}

// Job is one registered announcement.
type Job struct {
	ID       string
	Schedule string
	GroupID  string
	Text     string
}

// Service posts configured announcements to group chats on a cron schedule.
// Send failures are logged and never fatal.
type Service struct {
	client Messenger

	mu      sync.Mutex
	runner  *cron.Cron
	jobs    []Job
	running bool
}

// NewService creates a Service for the given announcement entries. Entries
// with an invalid schedule or a missing group are skipped with a log line.
func NewService(client Messenger, entries []config.Announcement) *Service {
	return &Service{
		client: client,
		jobs:   buildJobs(entries),
	}
}

func buildJobs(entries []config.Announcement) []Job {
	jobs := make([]Job, 0, len(entries))
	for _, entry := range entries {
		if entry.Schedule == "" || entry.GroupID == "" || entry.Text == "" {
			log.Printf("Skipping incomplete announcement entry (schedule=%q group=%q)", entry.Schedule, entry.GroupID)
			continue
		}
		jobs = append(jobs, Job{
			ID:       uuid.NewString(),
			Schedule: entry.Schedule,
			GroupID:  entry.GroupID,
			Text:     entry.Text,
		})
	}
	return jobs
}

// Start registers every job and starts the scheduler. No-op when already
// running or when there are no jobs.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || len(s.jobs) == 0 {
		return
	}

	runner := cron.New()
	for _, job := range s.jobs {
		job := job
		if _, err := runner.AddFunc(job.Schedule, func() { s.announce(job) }); err != nil {
			log.Printf("Error parsing announcement schedule '%s': %v", job.Schedule, err)
		}
	}
	runner.Start()
	s.runner = runner
	s.running = true
	log.Printf("Announcement scheduler started with %d job(s)", len(s.jobs))
}

// Stop halts the scheduler. Running announcements finish. Idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	ctx := s.runner.Stop()
	<-ctx.Done()
	s.running = false
}

// Jobs returns the registered announcements.
func (s *Service) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

func (s *Service) announce(job Job) {
	if err := s.client.SendGroupText(job.GroupID, job.Text, ""); err != nil {
		log.Printf("Announcement %s failed for group=%s: %v", job.ID, job.GroupID, err)
	}
}
