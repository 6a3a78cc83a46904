package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Lovsan/chatterbox/internal/core"
	"github.com/Lovsan/chatterbox/internal/domain"
	"github.com/Lovsan/chatterbox/internal/storage"
)

// --- Test doubles shared by the app package tests ---

var (
	errNotFound     = storage.ErrNotFound
	errTokenExpired = storage.ErrTokenExpired
)

type fakeConn struct {
	id   core.ConnID
	user *domain.User

	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
}

func newFakeConn(id string, user *domain.User) *fakeConn {
	ctx, cancel := context.WithCancel(context.Background())
	return &fakeConn{id: core.ConnID(id), user: user, ctx: ctx, cancel: cancel}
}

func (c *fakeConn) ID() core.ConnID          { return c.id }
func (c *fakeConn) User() *domain.User       { return c.user }
func (c *fakeConn) Context() context.Context { return c.ctx }

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	if c.full {
		return errors.New("backpressure")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
}

// events decodes every received frame into a generic map.
func (c *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil {
			t.Fatalf("bad frame %q: %v", f, err)
		}
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) eventsOfType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, ev := range c.events(t) {
		if ev["type"] == typ {
			out = append(out, ev)
		}
	}
	return out
}

type fakeMessageStore struct {
	mu     sync.Mutex
	nextID int64
	log    []*domain.Message
	fail   bool
}

func (s *fakeMessageStore) Append(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errors.New("db down")
	}
	s.nextID++
	cp := *msg
	cp.ID = s.nextID
	s.log = append(s.log, &cp)
	return &cp, nil
}

func (s *fakeMessageStore) DirectHistory(ctx context.Context, a, b domain.UserID, beforeID int64, limit int) ([]*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Message
	for i := len(s.log) - 1; i >= 0; i-- {
		m := s.log[i]
		if m.GroupID != 0 {
			continue
		}
		if (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeMessageStore) GroupHistory(ctx context.Context, gid domain.GroupID, beforeID int64, limit int) ([]*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Message
	for i := len(s.log) - 1; i >= 0; i-- {
		if s.log[i].GroupID == gid {
			out = append(out, s.log[i])
		}
	}
	return out, nil
}

func (s *fakeMessageStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.log)
}

type fakeUserStore struct {
	users map[domain.UserID]*domain.User
}

func (s *fakeUserStore) Create(ctx context.Context, username, hash string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeUserStore) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, errNotFound
}

func (s *fakeUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, string, error) {
	return nil, "", errNotFound
}

func (s *fakeUserStore) Search(ctx context.Context, q string, limit int) ([]domain.User, error) {
	return nil, nil
}

type fakeAttachmentStore struct {
	mu   sync.Mutex
	atts map[string]*domain.Attachment
}

func (s *fakeAttachmentStore) Put(ctx context.Context, token string, att *domain.Attachment, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.atts == nil {
		s.atts = make(map[string]*domain.Attachment)
	}
	s.atts[token] = att
	return nil
}

func (s *fakeAttachmentStore) Claim(ctx context.Context, token string) (*domain.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	att, ok := s.atts[token]
	if !ok {
		return nil, errTokenExpired
	}
	delete(s.atts, token)
	return att, nil
}

type fakeGroupStore struct {
	memberships map[domain.UserID][]domain.GroupID
}

func (s *fakeGroupStore) Create(ctx context.Context, name string, owner domain.UserID, code string) (*domain.Group, error) {
	return nil, errors.New("not implemented")
}
func (s *fakeGroupStore) GetByID(ctx context.Context, id domain.GroupID) (*domain.Group, error) {
	return nil, errNotFound
}
func (s *fakeGroupStore) GetByCode(ctx context.Context, code string) (*domain.Group, error) {
	return nil, errNotFound
}
func (s *fakeGroupStore) AddMember(ctx context.Context, gid domain.GroupID, uid domain.UserID) error {
	return nil
}
func (s *fakeGroupStore) RemoveMember(ctx context.Context, gid domain.GroupID, uid domain.UserID) error {
	return nil
}
func (s *fakeGroupStore) IsMember(ctx context.Context, gid domain.GroupID, uid domain.UserID) (bool, error) {
	for _, g := range s.memberships[uid] {
		if g == gid {
			return true, nil
		}
	}
	return false, nil
}
func (s *fakeGroupStore) MembershipsOf(ctx context.Context, uid domain.UserID) ([]domain.GroupID, error) {
	return s.memberships[uid], nil
}

type fakeTranslator struct {
	mu    sync.Mutex
	calls []string // target languages, in invocation order
	fail  bool
}

func (f *fakeTranslator) TranscribeTranslate(ctx context.Context, audio []byte, sourceLang, targetLang string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, targetLang)
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return "", errors.New("upstream 503")
	}
	return "[" + targetLang + "] caption", nil
}

func (f *fakeTranslator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
