package sentinelhub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/airbusgeo/parcel-imagery/common"
)

const fakeImage = "\x89PNG fake image"

// fakeSentinelHub serves the token and the process endpoints
type fakeSentinelHub struct {
	*httptest.Server

	mu              sync.Mutex
	tokenCalls      int
	tokenDelay      time.Duration
	tokenStatus     int
	processStatuses []int // statuses of the next process calls (200 when empty)
	processAuth     []string
	processBodies   []string
	contentTypes    []string
}

func newFakeSentinelHub(t *testing.T) *fakeSentinelHub {
	f := &fakeSentinelHub{tokenStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.PostForm.Get("grant_type") != "client_credentials" || r.PostForm.Get("client_id") != "id" || r.PostForm.Get("client_secret") != "secret" {
			t.Errorf("unexpected token request %v", r.PostForm)
		}
		f.mu.Lock()
		f.tokenCalls++
		n, status, delay := f.tokenCalls, f.tokenStatus, f.tokenDelay
		f.mu.Unlock()
		time.Sleep(delay)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":"invalid_client"}`)
			return
		}
		fmt.Fprintf(w, `{"access_token":"t%d","token_type":"Bearer","expires_in":3600}`, n)
	})
	mux.HandleFunc(processPath, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.processAuth = append(f.processAuth, r.Header.Get("Authorization"))
		f.processBodies = append(f.processBodies, string(body))
		f.contentTypes = append(f.contentTypes, r.Header.Get("Content-Type"))
		status := http.StatusOK
		if len(f.processStatuses) > 0 {
			status, f.processStatuses = f.processStatuses[0], f.processStatuses[1:]
		}
		f.mu.Unlock()

		w.WriteHeader(status)
		if status == http.StatusOK {
			fmt.Fprint(w, fakeImage)
		} else {
			fmt.Fprintf(w, `{"error":{"status":%d}}`, status)
		}
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeSentinelHub) credentials() Credentials {
	return Credentials{ClientID: "id", ClientSecret: "secret", TokenURL: f.URL + "/oauth/token"}
}

func (f *fakeSentinelHub) setTokenStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenStatus = status
}

func (f *fakeSentinelHub) setTokenDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenDelay = d
}

func (f *fakeSentinelHub) queueProcessStatuses(statuses ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processStatuses = append(f.processStatuses, statuses...)
}

func (f *fakeSentinelHub) calls() (tokens, process int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCalls, len(f.processAuth)
}

// spyStorage records the saved files and fails the failAt-th call (1-based, never if 0)
type spyStorage struct {
	failAt int
	calls  int
	saved  map[string][]byte
	order  []string
}

func newSpyStorage(failAt int) *spyStorage {
	return &spyStorage{failAt: failAt, saved: map[string][]byte{}}
}

func (s *spyStorage) Save(ctx context.Context, data []byte, filename string) (string, error) {
	s.calls++
	if s.calls == s.failAt {
		return "", errors.New("disk full")
	}
	uri := "mem://" + filename
	s.saved[uri] = data
	s.order = append(s.order, uri)
	return uri, nil
}

func (s *spyStorage) Delete(ctx context.Context, uri string) error {
	delete(s.saved, uri)
	return nil
}

var testParcel = common.Parcel{
	ID:     "p1",
	UserID: "u1",
	Boundary: []common.Point{
		{Longitude: -58.38, Latitude: -34.60},
		{Longitude: -58.37, Latitude: -34.60},
		{Longitude: -58.37, Latitude: -34.61},
	},
}

var testNow = time.Date(2024, 6, 25, 10, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, f *fakeSentinelHub, storage *spyStorage) *Client {
	ctx := context.Background()
	tokens, err := NewTokenManager(ctx, f.Client(), f.credentials())
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient(f.Client(), tokens, storage, Config{BaseURL: f.URL})
	c.now = func() time.Time { return testNow }
	return c
}
