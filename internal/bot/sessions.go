package bot

import (
	"errors"
	"sync"
	"time"

	"summarygen/internal/table"
)

var (
	errBatchRunning = errors.New("batch is already running")
	errNoUpload     = errors.New("no uploaded table")
)

type pendingUpload struct {
	table      *table.Table
	fileName   string
	uploadedAt time.Time
}

type session struct {
	apiKey  string
	pending *pendingUpload
	running bool
}

// sessions keeps per-chat state in memory only. Keys never leave the process.
type sessions struct {
	mu    sync.Mutex
	chats map[int64]*session
}

func newSessions() *sessions {
	return &sessions{chats: make(map[int64]*session)}
}

func (s *sessions) get(chatID int64) *session {
	sess, ok := s.chats[chatID]
	if !ok {
		sess = &session{}
		s.chats[chatID] = sess
	}

	return sess
}

func (s *sessions) setAPIKey(chatID int64, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.get(chatID).apiKey = key
}

func (s *sessions) clearAPIKey(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.get(chatID)
	had := sess.apiKey != ""
	sess.apiKey = ""

	return had
}

func (s *sessions) apiKey(chatID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.get(chatID).apiKey
}

func (s *sessions) setPending(chatID int64, upload *pendingUpload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.get(chatID)
	if sess.running {
		return errBatchRunning
	}
	sess.pending = upload

	return nil
}

func (s *sessions) pending(chatID int64) *pendingUpload {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.get(chatID).pending
}

// startBatch takes the pending upload and marks the chat as busy.
func (s *sessions) startBatch(chatID int64) (*pendingUpload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.get(chatID)
	if sess.running {
		return nil, errBatchRunning
	}
	if sess.pending == nil {
		return nil, errNoUpload
	}

	upload := sess.pending
	sess.pending = nil
	sess.running = true

	return upload, nil
}

func (s *sessions) finishBatch(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.get(chatID).running = false
}

// cancel drops the pending upload. It reports false when there was none.
func (s *sessions) cancel(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.get(chatID)
	had := sess.pending != nil
	sess.pending = nil

	return had
}
