package imgur

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"postfetch/internal"
	"postfetch/utils"
)

type testSettings struct {
	clientID   string
	secret     string
	mashapeKey string
}

func (s testSettings) ImgurClientID() string     { return s.clientID }
func (s testSettings) ImgurClientSecret() string { return s.secret }
func (s testSettings) ImgurMashapeKey() string   { return s.mashapeKey }

// fakeImgur serves the credits endpoint and a scripted sequence of statuses for every
// other path
type fakeImgur struct {
	server        *httptest.Server
	mutex         sync.Mutex
	credits       Credits
	creditsStatus int
	creditsError  string
	statuses      []int
	creditsCalls  int32
	resourceCalls int32
	lastHeaders   http.Header
	payload       string
}

func newFakeImgur(t *testing.T, userRemaining, clientRemaining int) *fakeImgur {
	t.Helper()
	f := &fakeImgur{
		credits: Credits{
			UserLimit:       500,
			UserRemaining:   userRemaining,
			UserReset:       time.Now().Add(time.Hour).Unix(),
			ClientLimit:     12500,
			ClientRemaining: clientRemaining,
		},
		creditsStatus: http.StatusOK,
		payload:       `{"data":[],"success":true,"status":200}`,
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeImgur) handle(w http.ResponseWriter, r *http.Request) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if r.URL.Path == "/3/credits" {
		atomic.AddInt32(&f.creditsCalls, 1)
		w.WriteHeader(f.creditsStatus)
		if f.creditsStatus != http.StatusOK {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data":    map[string]string{"error": f.creditsError},
				"success": false,
				"status":  f.creditsStatus,
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data":    f.credits,
			"success": true,
			"status":  200,
		})
		return
	}

	atomic.AddInt32(&f.resourceCalls, 1)
	f.lastHeaders = r.Header.Clone()

	status := http.StatusOK
	if len(f.statuses) > 0 {
		status = f.statuses[0]
		f.statuses = f.statuses[1:]
	}
	w.WriteHeader(status)
	if status == http.StatusOK {
		w.Write([]byte(f.payload))
	}
}

func (f *fakeImgur) baseURL() string {
	return f.server.URL + "/3/"
}

func newTestQuota(f *fakeImgur, settings testSettings, opts ...QuotaOption) *QuotaManager {
	opts = append([]QuotaOption{WithBaseURLs(f.baseURL(), f.baseURL())}, opts...)
	return NewQuotaManager(settings, utils.NewHTTPClient(), opts...)
}

func TestCheckCredits_UsesScarcerCount(t *testing.T) {
	f := newFakeImgur(t, 40, 7)
	quota := newTestQuota(f, testSettings{clientID: "abc"})

	state, err := quota.CheckCredits(context.Background())
	if err != nil {
		t.Fatalf("CheckCredits: %v", err)
	}
	if state.RemainingCredits != 7 {
		t.Errorf("expected 7 credits, got %d", state.RemainingCredits)
	}
	if !state.ResetAt.Equal(time.Unix(f.credits.UserReset, 0)) {
		t.Errorf("expected reset at user reset, got %v", state.ResetAt)
	}
	if quota.Snapshot() != state {
		t.Error("state was not stored")
	}
}

func TestCheckCredits_PropagatesFailures(t *testing.T) {
	f := newFakeImgur(t, 10, 10)
	f.creditsStatus = http.StatusForbidden
	f.creditsError = "Invalid client_id"
	quota := newTestQuota(f, testSettings{clientID: "bad"})

	_, err := quota.CheckCredits(context.Background())
	if !errors.Is(err, internal.NewFetchError(0, "", internal.ErrInvalidCredential)) {
		t.Errorf("expected invalid credential error, got %v", err)
	}

	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	closed.Close()
	offline := NewQuotaManager(testSettings{clientID: "abc"}, utils.NewHTTPClient(), WithBaseURLs(closed.URL+"/3/", ""))
	if _, err := offline.CheckCredits(context.Background()); err == nil {
		t.Error("expected transport error")
	}
}

func TestSelectEndpoint(t *testing.T) {
	t.Run("credits_left_skips_check", func(t *testing.T) {
		f := newFakeImgur(t, 0, 0)
		quota := newTestQuota(f, testSettings{clientID: "abc", mashapeKey: "key"})
		quota.Observe(QuotaState{RemainingCredits: 5, ResetAt: time.Now().Add(time.Hour)})

		endpoint, err := quota.SelectEndpoint(context.Background())
		if err != nil {
			t.Fatalf("SelectEndpoint: %v", err)
		}
		if endpoint.Metered {
			t.Error("expected the free endpoint")
		}
		if calls := atomic.LoadInt32(&f.creditsCalls); calls != 0 {
			t.Errorf("credits checked %d times, expected none", calls)
		}
	})

	t.Run("stale_state_is_refreshed", func(t *testing.T) {
		f := newFakeImgur(t, 3, 3)
		quota := newTestQuota(f, testSettings{clientID: "abc"})

		endpoint, err := quota.SelectEndpoint(context.Background())
		if err != nil {
			t.Fatalf("SelectEndpoint: %v", err)
		}
		if calls := atomic.LoadInt32(&f.creditsCalls); endpoint.Metered || calls != 1 {
			t.Errorf("expected one refresh and the free endpoint, got %d calls metered=%v", calls, endpoint.Metered)
		}
	})

	t.Run("no_credits_uses_fallback", func(t *testing.T) {
		f := newFakeImgur(t, 0, 100)
		quota := newTestQuota(f, testSettings{clientID: "abc", mashapeKey: "rapid-key"},
			WithBaseURLs(f.baseURL(), "https://rapid.example/3/"))

		endpoint, err := quota.SelectEndpoint(context.Background())
		if err != nil {
			t.Fatalf("SelectEndpoint: %v", err)
		}
		if !endpoint.Metered {
			t.Fatal("expected the metered endpoint")
		}
		if endpoint.URL("album/x/images") != "https://rapid.example/3/album/x/images" {
			t.Errorf("unexpected URL %s", endpoint.URL("album/x/images"))
		}
		headers := endpoint.Headers()
		if headers["X-Mashape-Key"] != "rapid-key" || headers["Authorization"] != "Client-ID abc" {
			t.Errorf("unexpected headers %v", headers)
		}
	})

	t.Run("no_credits_no_fallback", func(t *testing.T) {
		f := newFakeImgur(t, 0, 100)
		quota := newTestQuota(f, testSettings{clientID: "abc"})

		_, err := quota.SelectEndpoint(context.Background())
		if internal.TypeOf(err, internal.ErrNone) != internal.ErrNoQuota {
			t.Errorf("expected NoQuotaAvailable, got %v", err)
		}
	})
}

func TestCreditTimeLimit(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	quota := NewQuotaManager(testSettings{}, nil, WithClock(func() time.Time { return now }))

	if !quota.HasCreditWindow() {
		t.Error("an unset limit should report a credit window")
	}

	quota.SetCreditTimeLimit(time.Time{})
	if quota.HasCreditWindow() {
		t.Error("window should be closed right after setting the limit")
	}
	if expected := now.Add(3605 * time.Second); !quota.CreditTimeLimit().Equal(expected) {
		t.Errorf("expected default limit %v, got %v", expected, quota.CreditTimeLimit())
	}

	quota.SetCreditTimeLimit(now.Add(-time.Second))
	if !quota.HasCreditWindow() {
		t.Error("a past limit should report a credit window")
	}
}

func TestObserveHeaders(t *testing.T) {
	quota := NewQuotaManager(testSettings{}, nil)
	reset := time.Now().Add(time.Hour).Unix()

	quota.ObserveHeaders(http.Header{"X-Ratelimit-Userremaining": []string{"9"}})
	if quota.Snapshot().RemainingCredits != 0 {
		t.Error("partial headers must be ignored")
	}

	header := http.Header{}
	header.Set("X-RateLimit-UserRemaining", "9")
	header.Set("X-RateLimit-ClientRemaining", "4")
	header.Set("X-RateLimit-UserReset", strconv.FormatInt(reset, 10))
	quota.ObserveHeaders(header)

	if state := quota.Snapshot(); state.RemainingCredits != 4 || state.ResetAt.Unix() != reset {
		t.Errorf("unexpected state %+v", state)
	}
}
