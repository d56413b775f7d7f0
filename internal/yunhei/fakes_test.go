package yunhei

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rshade/ysyunhei/internal/blacklist"
	"github.com/rshade/ysyunhei/internal/onebot"
)

const (
	testGroup = int64(9000)
	testSelf  = int64(1)
	testAdmin = int64(10001)
	testKey   = "SECRET123"
)

// fakeAPI answers Query from a per-account table.
type fakeAPI struct {
	mu      sync.Mutex
	results map[string]*blacklist.Result
	errs    map[string]error
	queries map[string]int
	added   []blacklist.AddRequest
	addRes  *blacklist.Result
	addErr  error
	// afterAdd replaces the table entry once Add succeeds.
	afterAdd *blacklist.Result
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		results: map[string]*blacklist.Result{},
		errs:    map[string]error{},
		queries: map[string]int{},
		addRes:  &blacklist.Result{Code: 1},
	}
}

func (f *fakeAPI) Query(_ context.Context, account string) (*blacklist.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries[account]++
	if err := f.errs[account]; err != nil {
		return nil, err
	}
	if r, ok := f.results[account]; ok {
		return r, nil
	}
	return &blacklist.Result{Code: 1}, nil
}

func (f *fakeAPI) Add(_ context.Context, in blacklist.AddRequest) (*blacklist.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, in)
	if f.addErr != nil {
		return nil, f.addErr
	}
	if f.addRes.Success() && f.afterAdd != nil {
		f.results[in.Account] = f.afterAdd
	}
	return f.addRes, nil
}

func (f *fakeAPI) totalQueries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.queries {
		n += c
	}
	return n
}

func listed(account, level, desc string) *blacklist.Result {
	return &blacklist.Result{Code: 1, Records: []blacklist.Record{{
		Account:      blacklist.FlexString(account),
		Platform:     "QQ",
		LevelLabel:   blacklist.FlexString(level),
		Description:  blacklist.FlexString(desc),
		Registration: "管理A",
		AddTime:      "2024-05-01 10:00:00",
		Expiration:   "0",
	}}}
}

type banCall struct {
	user int64
	d    time.Duration
}

// fakeMod is an in-memory group.
type fakeMod struct {
	mu        sync.Mutex
	members   []onebot.GroupMember
	botRole   string
	infoErr   error
	listErr   error
	kickErrs  map[int64]error
	banErr    error
	strangers map[int64]string
	kicked    []int64
	rejected  []bool
	bans      []banCall
	calls     int
}

func newFakeMod() *fakeMod {
	return &fakeMod{botRole: onebot.RoleAdmin, kickErrs: map[int64]error{}, strangers: map[int64]string{}}
}

func (f *fakeMod) GetGroupMemberInfo(_ context.Context, groupID, userID int64) (onebot.GroupMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.infoErr != nil {
		return onebot.GroupMember{}, f.infoErr
	}
	if userID == testSelf {
		return onebot.GroupMember{GroupID: groupID, UserID: userID, Role: f.botRole}, nil
	}
	for _, m := range f.members {
		if m.UserID == userID {
			return m, nil
		}
	}
	return onebot.GroupMember{}, errors.New("member not found")
}

func (f *fakeMod) GetGroupMemberList(context.Context, int64) ([]onebot.GroupMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]onebot.GroupMember(nil), f.members...), nil
}

func (f *fakeMod) SetGroupKick(_ context.Context, _, userID int64, reject bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.kickErrs[userID]; err != nil {
		return err
	}
	f.kicked = append(f.kicked, userID)
	f.rejected = append(f.rejected, reject)
	return nil
}

func (f *fakeMod) SetGroupBan(_ context.Context, _, userID int64, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.banErr != nil {
		return f.banErr
	}
	f.bans = append(f.bans, banCall{user: userID, d: d})
	return nil
}

func (f *fakeMod) GetStrangerInfo(_ context.Context, userID int64) (onebot.Stranger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.strangers[userID]
	if !ok {
		return onebot.Stranger{}, errors.New("stranger lookup failed")
	}
	return onebot.Stranger{UserID: userID, Nickname: name}, nil
}

// outbox records everything sent to the chat.
type outbox struct {
	mu   sync.Mutex
	msgs []string
}

func (o *outbox) send(_ context.Context, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, text)
	return nil
}

func (o *outbox) all() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.msgs...)
}

func groupSession(out *outbox) Session {
	s := Session{GroupID: testGroup, UserID: testAdmin, SelfID: testSelf}
	if out != nil {
		s.Send = out.send
	}
	return s
}

func newTestService(t *testing.T, api *fakeAPI, mod *fakeMod, mutate ...func(*Options)) *Service {
	t.Helper()
	opts := Options{
		APIKey:         testKey,
		Admins:         map[string]string{"10001": "管理A"},
		SleepStartHour: 22,
		SleepEndHour:   2,
		SleepMuteHours: 8,
		Now:            func() time.Time { return time.Date(2024, 5, 1, 23, 30, 0, 0, time.FixedZone("CST", 8*3600)) },
	}
	for _, m := range mutate {
		m(&opts)
	}
	svc := NewService(api, mod, opts)
	require.NotNil(t, svc)
	return svc
}
