package signtype_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/bft-labs/signtype/internal/domain"
	"github.com/bft-labs/signtype/internal/journal"
	"github.com/bft-labs/signtype/pkg/signtype"
)

// =============================================================================
// Test Utilities
// =============================================================================

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
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

// recordingHandler records every event.
type recordingHandler struct {
	mu      sync.Mutex
	states  []signtype.StateChangeEvent
	opened  int
	closed  int
	commits []signtype.CommitEvent
}

func (h *recordingHandler) OnStateChange(e signtype.StateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, e)
}

func (h *recordingHandler) OnSessionOpened(signtype.SessionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opened++
}

func (h *recordingHandler) OnSessionClosed(signtype.SessionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed++
}

func (h *recordingHandler) OnCommit(e signtype.CommitEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commits = append(h.commits, e)
}

func (h *recordingHandler) snapshot() (opened, closed int, commits []signtype.CommitEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opened, h.closed, append([]signtype.CommitEvent(nil), h.commits...)
}

// trackingPlugin records initialization and shutdown order.
type trackingPlugin struct {
	name    string
	mu      *sync.Mutex
	order   *[]string
	initErr error
}

func (p *trackingPlugin) Name() string { return p.name }

func (p *trackingPlugin) Initialize(ctx context.Context, cfg signtype.PluginConfig) error {
	if p.initErr != nil {
		return p.initErr
	}
	if cfg.Pipeline == nil || cfg.Sessions == nil || cfg.Commit == nil {
		return errors.New("incomplete plugin config")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.order = append(*p.order, "init:"+p.name)
	return nil
}

func (p *trackingPlugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.order = append(*p.order, "shutdown:"+p.name)
	return nil
}

func testConfig() signtype.Config {
	cfg := signtype.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	return cfg
}

func startServer(t *testing.T, cfg signtype.Config, opts ...signtype.Option) *signtype.Server {
	t.Helper()
	srv, err := signtype.New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Stop() })
	return srv
}

func frameMessage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	msg, _ := json.Marshal(map[string]string{
		"type": "frame",
		"data": "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	return msg
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

// =============================================================================
// Tests
// =============================================================================

func TestNew_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	noDelete := filepath.Join(dir, "classes.txt")
	if err := os.WriteFile(noDelete, []byte("A\nB\nnothing\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(*signtype.Config)
	}{
		{"unknown classifier", func(c *signtype.Config) { c.Classifier = "onnx" }},
		{"remote without url", func(c *signtype.Config) { c.Classifier = signtype.ClassifierRemote }},
		{"remote relative url", func(c *signtype.Config) {
			c.Classifier = signtype.ClassifierRemote
			c.ClassifierURL = "/classify"
		}},
		{"same tokens", func(c *signtype.Config) { c.Session.DeleteToken = c.Session.IdleToken }},
		{"bad ws path", func(c *signtype.Config) { c.WSPath = "ws" }},
		{"vocabulary without delete token", func(c *signtype.Config) { c.VocabularyFile = noDelete }},
		{"missing vocabulary file", func(c *signtype.Config) { c.VocabularyFile = filepath.Join(dir, "missing") }},
		{"static label outside vocabulary", func(c *signtype.Config) { c.StaticLabel = "space" }},
		{"negative cache", func(c *signtype.Config) { c.CacheSize = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := signtype.New(cfg)
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestServer_Lifecycle(t *testing.T) {
	handler := &recordingHandler{}
	srv, err := signtype.New(testConfig(), signtype.WithEventHandler(handler))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if srv.Status() != signtype.StateStopped {
		t.Fatalf("Status() = %s, want Stopped", srv.Status())
	}
	if err := srv.Stop(); !errors.Is(err, domain.ErrNotRunning) {
		t.Errorf("Stop() before Start error = %v, want ErrNotRunning", err)
	}

	for round := 0; round < 2; round++ {
		if err := srv.Start(context.Background()); err != nil {
			t.Fatalf("round %d: Start() error = %v", round, err)
		}
		if err := srv.Start(context.Background()); !errors.Is(err, domain.ErrAlreadyRunning) {
			t.Errorf("round %d: second Start() error = %v, want ErrAlreadyRunning", round, err)
		}
		if srv.Status() != signtype.StateRunning {
			t.Errorf("round %d: Status() = %s, want Running", round, srv.Status())
		}
		if err := srv.Stop(); err != nil {
			t.Fatalf("round %d: Stop() error = %v", round, err)
		}
		if srv.Status() != signtype.StateStopped {
			t.Errorf("round %d: Status() = %s, want Stopped", round, srv.Status())
		}
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.states) != 8 {
		t.Errorf("state events = %d, want 8", len(handler.states))
	}
}

func TestServer_HTTPRoutes(t *testing.T) {
	srv := startServer(t, testConfig())
	base := "http://" + srv.Addr().String()

	var info map[string]any
	if code := getJSON(t, base+"/", &info); code != http.StatusOK {
		t.Fatalf("GET / status = %d", code)
	}
	if info["status"] != "running" || info["classifier"] != "static" || info["vocabulary_size"] != float64(28) {
		t.Errorf("GET / = %v", info)
	}

	var health map[string]any
	if code := getJSON(t, base+"/health", &health); code != http.StatusOK {
		t.Fatalf("GET /health status = %d", code)
	}
	if health["status"] != "healthy" || health["model_loaded"] != true {
		t.Errorf("GET /health = %v", health)
	}

	if code := getJSON(t, base+"/nope", nil); code != http.StatusNotFound {
		t.Errorf("GET /nope status = %d, want 404", code)
	}

	resp, err := http.Get(base + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "signtype_active_sessions") {
		t.Errorf("/metrics missing signtype collectors:\n%s", body)
	}
}

func TestServer_GRPCHealth(t *testing.T) {
	cfg := testConfig()
	cfg.GRPCHealthAddr = "127.0.0.1:0"
	srv := startServer(t, cfg)

	conn, err := grpc.NewClient(srv.GRPCAddr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient() error = %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("health = %s, want SERVING", resp.GetStatus())
	}
}

func TestServer_EndToEnd(t *testing.T) {
	clock := newTestClock()
	handler := &recordingHandler{}
	journalPath := filepath.Join(t.TempDir(), "journal.db")

	cfg := testConfig()
	cfg.StaticLabel = "H"
	srv := startServer(t, cfg,
		signtype.WithClock(clock.Now),
		signtype.WithEventHandler(handler),
		signtype.WithJournal(journalPath))

	url := "ws://" + srv.Addr().String() + "/ws/detect"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	// Reset pins the cooldown start to the test clock.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"reset"}`)); err != nil {
		t.Fatal(err)
	}
	var reply map[string]any
	if err := conn.ReadJSON(&reply); err != nil || reply["type"] != "reset_complete" {
		t.Fatalf("reset reply = %v, %v", reply, err)
	}
	clock.Advance(10 * time.Second)

	frame := frameMessage(t)
	for i := 1; i <= 8; i++ {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			t.Fatal(err)
		}
		reply = nil
		if err := conn.ReadJSON(&reply); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	if reply["should_accept"] != true || reply["text_buffer"] != "H" {
		t.Fatalf("8th reply = %v, want accept of H", reply)
	}
	if srv.Registry().Len() != 1 {
		t.Errorf("Registry().Len() = %d, want 1", srv.Registry().Len())
	}

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if srv.Registry().Len() != 0 {
		t.Errorf("Registry().Len() after Stop = %d, want 0", srv.Registry().Len())
	}

	opened, closed, commits := handler.snapshot()
	if opened != 1 || closed != 1 {
		t.Errorf("opened/closed = %d/%d, want 1/1", opened, closed)
	}
	if len(commits) != 1 || commits[0].Letter != "H" || commits[0].Kind != "accept" {
		t.Errorf("commits = %+v, want one accept of H", commits)
	}

	store, err := journal.Open(journalPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	sum, err := store.Summary(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Accepts != 1 || sum.Sessions != 1 {
		t.Errorf("journal summary = %+v, want 1 accept in 1 session", sum)
	}
}

func TestServer_Plugins(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	a := &trackingPlugin{name: "a", mu: &mu, order: &order}
	b := &trackingPlugin{name: "b", mu: &mu, order: &order}

	srv, err := signtype.New(testConfig(), signtype.WithPlugin(a), signtype.WithPlugin(b))
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := srv.Stop(); err != nil {
		t.Fatal(err)
	}

	want := []string{"init:a", "init:b", "shutdown:b", "shutdown:a"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestServer_PluginInitFailure(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	good := &trackingPlugin{name: "good", mu: &mu, order: &order}
	bad := &trackingPlugin{name: "bad", mu: &mu, order: &order, initErr: errors.New("boom")}

	srv, err := signtype.New(testConfig(), signtype.WithPlugin(good), signtype.WithPlugin(bad))
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Fatal("Start() error = nil, want plugin failure")
	}
	if srv.Status() != signtype.StateCrashed {
		t.Errorf("Status() = %s, want Crashed", srv.Status())
	}

	want := []string{"init:good", "shutdown:good"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestServer_StopsWhenContextCancelled(t *testing.T) {
	srv, err := signtype.New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	deadline := time.Now().Add(5 * time.Second)
	for srv.Status() != signtype.StateStopped {
		if time.Now().After(deadline) {
			t.Fatalf("Status() = %s after cancel, want Stopped", srv.Status())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
