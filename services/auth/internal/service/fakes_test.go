package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/diagnosis/verifywoo/pkg/config"
	"github.com/diagnosis/verifywoo/pkg/events"
	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
	"github.com/diagnosis/verifywoo/services/auth/internal/sms"
)

// ---------- Fakes ----------

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMessage struct {
	to      string
	message string
	pattern string
	data    sms.PatternData
}

type fakeGateway struct {
	mu     sync.Mutex
	sent   []sentMessage
	result bool
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) Send(_ context.Context, to, message string, _ sms.SendOptions) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, sentMessage{to: to, message: message})
	return g.result
}

func (g *fakeGateway) SendByPattern(_ context.Context, to, pattern string, data sms.PatternData, _ sms.SendOptions) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, sentMessage{to: to, pattern: pattern, data: data})
	return g.result
}

func (g *fakeGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}

func (g *fakeGateway) last() sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sent[len(g.sent)-1]
}

type publishedEvent struct {
	subject string
	data    interface{}
}

type recordingBus struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (b *recordingBus) Publish(_ context.Context, subject string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, publishedEvent{subject: subject, data: data})
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) subjects() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.subject)
	}
	return out
}

func (b *recordingBus) find(subject string) (interface{}, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.events {
		if e.subject == subject {
			return e.data, true
		}
	}
	return nil, false
}

var _ events.Publisher = (*recordingBus)(nil)

type fakeAccounts struct {
	mu        sync.Mutex
	nextID    int64
	byLogin   map[string]*domain.Account
	meta      map[int64]map[string]string
	created   []domain.NewAccount
	createErr error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		nextID:  100,
		byLogin: make(map[string]*domain.Account),
		meta:    make(map[int64]map[string]string),
	}
}

func (f *fakeAccounts) add(login, role string) *domain.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	acc := &domain.Account{ID: f.nextID, Login: login, Role: role}
	f.byLogin[login] = acc
	return acc
}

func (f *fakeAccounts) FindByLogin(_ context.Context, login string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byLogin[login], nil
}

func (f *fakeAccounts) FindByID(_ context.Context, id int64) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byLogin {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAccounts) Create(_ context.Context, acc *domain.NewAccount, passwordHash string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, exists := f.byLogin[acc.Login]; exists {
		return nil, errors.New("duplicate login")
	}
	f.nextID++
	created := &domain.Account{
		ID:           f.nextID,
		Login:        acc.Login,
		PasswordHash: passwordHash,
		Role:         acc.Role,
		Email:        acc.Email,
		DisplayName:  acc.DisplayName,
	}
	f.byLogin[acc.Login] = created
	f.created = append(f.created, *acc)
	return created, nil
}

func (f *fakeAccounts) SetMeta(_ context.Context, accountID int64, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.meta[accountID] == nil {
		f.meta[accountID] = make(map[string]string)
	}
	f.meta[accountID][key] = value
	return nil
}

func (f *fakeAccounts) GetMeta(_ context.Context, accountID int64, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meta[accountID][key], nil
}

type fakeSessions struct {
	issued []*domain.Account
}

func (f *fakeSessions) Issue(_ context.Context, account *domain.Account) (*domain.Session, error) {
	f.issued = append(f.issued, account)
	return &domain.Session{Token: "session-for-" + account.Login, Account: account}, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.OTP.Cooldown = 60 * time.Second
	cfg.OTP.Expiration = 60 * time.Second
	cfg.OTP.MaxAttempts = 3
	return cfg
}

func fixedCodes(codes ...int) func() (int, error) {
	var mu sync.Mutex
	i := 0
	return func() (int, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}

func fastHash(password string) (string, error) {
	return "hashed:" + password, nil
}
