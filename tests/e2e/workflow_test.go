package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

const (
	testSecret        = "e2e-secret"
	serverStartTimeout = 15 * time.Second
)

var habitIDPattern = regexp.MustCompile(`\(([0-9a-f-]{36})\)`)

// fakeGemini answers every generateContent call with the same two items.
func fakeGemini(t *testing.T) *httptest.Server {
	t.Helper()
	reply := `[{"activity":"Running","quantity":5,"unit":"mi","category":"fitness","confidence":0.9},` +
		`{"activity":"reading","quantity":20,"unit":"pages","category":"learning","confidence":0.8}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") || r.Header.Get("x-goog-api-key") != "fake-key" {
			http.Error(w, `{"error":{"code":403,"message":"denied","status":"PERMISSION_DENIED"}}`, http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func binary(t *testing.T) string {
	t.Helper()
	dir := os.Getenv("HABITLOOP_BIN_DIR")
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			t.Fatalf("Failed to get cwd: %v", err)
		}
		dir = filepath.Join(cwd, "..", "..", "bin")
	}
	path, _ := filepath.Abs(filepath.Join(dir, "habitloop"))
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skipf("habitloop binary not found at %s; build it first", path)
	}
	return path
}

func isolatedEnv(t *testing.T, gemini string) []string {
	t.Helper()
	home := t.TempDir()
	var env []string
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "HOME=") || strings.HasPrefix(e, "XDG_CONFIG_HOME=") || strings.HasPrefix(e, "HABITLOOP_") {
			continue
		}
		env = append(env, e)
	}
	return append(env,
		"HOME="+home,
		"XDG_CONFIG_HOME="+home,
		"HABITLOOP_USER=alice",
		"HABITLOOP_DATABASE_DSN="+filepath.Join(home, "habitloop", "habitloop.db"),
		"HABITLOOP_AUTH_SECRET="+testSecret,
		"HABITLOOP_EXTRACT_API_KEY=fake-key",
		"HABITLOOP_EXTRACT_BASE_URL="+gemini,
		"HABITLOOP_CYCLE_TIMEZONE=UTC",
	)
}

func run(t *testing.T, bin string, env []string, args ...string) string {
	t.Helper()
	out, err := runErr(bin, env, args...)
	if err != nil {
		t.Fatalf("habitloop %v failed: %v\nOutput: %s", args, err, out)
	}
	return out
}

func runErr(bin string, env []string, args ...string) (string, error) {
	cmd := exec.Command(bin, args...)
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestCLIWorkflow(t *testing.T) {
	bin := binary(t)
	env := isolatedEnv(t, fakeGemini(t).URL)

	run(t, bin, env, "migrate")

	out := run(t, bin, env, "habit", "add", "ran 5 miles and read 20 pages")
	match := habitIDPattern.FindStringSubmatch(out)
	if match == nil {
		t.Fatalf("no habit id in output: %s", out)
	}
	id := match[1]
	if !strings.Contains(out, "running 5 miles [fitness]") {
		t.Errorf("expected normalized item in output, got: %s", out)
	}

	// A new habit counts as done for the cycle it was created in.
	if out, err := runErr(bin, env, "habit", "complete", id); err == nil || !strings.Contains(out, "already completed") {
		t.Errorf("expected conflict on immediate completion, got err=%v output=%s", err, out)
	}

	out = run(t, bin, env, "habit", "list")
	if !strings.Contains(out, "running") {
		t.Errorf("expected habit in list, got: %s", out)
	}

	// Other users cannot see or delete it.
	other := append(append([]string{}, env...), "HABITLOOP_USER=bob")
	if out := run(t, bin, other, "habit", "list"); !strings.Contains(out, "No habits found.") {
		t.Errorf("expected empty list for another user, got: %s", out)
	}
	if _, err := runErr(bin, other, "habit", "delete", id); err == nil {
		t.Errorf("expected another user's delete to fail")
	}

	stats := exec.Command(bin, "stats", "--json")
	stats.Env = env
	raw, err := stats.Output()
	if err != nil {
		t.Fatalf("habitloop stats --json failed: %v", err)
	}
	var dashboard map[string]any
	if err := json.Unmarshal(raw, &dashboard); err != nil {
		t.Fatalf("stats --json is not JSON: %v\n%s", err, raw)
	}

	run(t, bin, env, "backup", "create")
	if out := run(t, bin, env, "backup", "list"); !strings.Contains(out, "Backups (1)") {
		t.Errorf("expected one backup, got: %s", out)
	}

	run(t, bin, env, "habit", "delete", id)
	if out, err := runErr(bin, env, "habit", "delete", id); err == nil || !strings.Contains(out, "not found") {
		t.Errorf("expected not found on second delete, got err=%v output=%s", err, out)
	}

	if out := run(t, bin, env, "doctor"); !strings.Contains(out, "Database reachable") {
		t.Errorf("expected doctor to report a reachable database, got: %s", out)
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find a free port: %v", err)
	}
	defer l.Close()
	return l.Addr().String()
}

func waitHealthy(t *testing.T, base string) {
	t.Helper()
	deadline := time.Now().Add(serverStartTimeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server at %s did not become healthy", base)
}

func TestServeWorkflow(t *testing.T) {
	bin := binary(t)
	env := isolatedEnv(t, fakeGemini(t).URL)
	addr := freeAddr(t)
	env = append(env, "HABITLOOP_SERVER_ADDR="+addr)

	run(t, bin, env, "migrate")
	token := strings.TrimSpace(strings.SplitN(run(t, bin, env, "token", "issue"), "\n", 2)[0])

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serve := exec.CommandContext(ctx, bin, "serve")
	serve.Env = env
	serve.Cancel = func() error { return serve.Process.Signal(os.Interrupt) }
	if err := serve.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	defer serve.Wait()

	base := "http://" + addr
	waitHealthy(t, base)

	call := func(method, path, body string, auth bool) (int, map[string]any) {
		t.Helper()
		req, err := http.NewRequest(method, base+path, strings.NewReader(body))
		if err != nil {
			t.Fatalf("bad request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if auth {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s failed: %v", method, path, err)
		}
		defer resp.Body.Close()
		var decoded map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("%s %s returned non-JSON body: %v", method, path, err)
		}
		return resp.StatusCode, decoded
	}

	if status, body := call(http.MethodGet, "/api/habits", "", false); status != http.StatusUnauthorized || body["code"] != "unauthenticated" {
		t.Errorf("expected 401 without token, got %d %v", status, body)
	}

	status, body := call(http.MethodPost, "/api/habits", `{"inputText":"ran 5 miles and read 20 pages"}`, true)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d %v", status, body)
	}
	habit, _ := body["habit"].(map[string]any)
	id, _ := habit["id"].(string)
	if id == "" || habit["title"] != "running" {
		t.Fatalf("unexpected habit: %v", body)
	}
	if items, _ := body["parsedHabits"].([]any); len(items) != 2 {
		t.Errorf("expected 2 parsed items, got %v", body["parsedHabits"])
	}

	if status, body := call(http.MethodPatch, "/api/habits/"+id+"/complete", "", true); status != http.StatusConflict {
		t.Errorf("expected 409, got %d %v", status, body)
	}

	if status, body := call(http.MethodGet, "/api/habits", "", true); status != http.StatusOK {
		t.Errorf("expected 200, got %d %v", status, body)
	} else if list, _ := body["habits"].([]any); len(list) != 1 {
		t.Errorf("expected one habit, got %v", body["habits"])
	}

	if status, _ := call(http.MethodDelete, "/api/habits/"+id, "", true); status != http.StatusOK {
		t.Errorf("expected 200 on delete, got %d", status)
	}
	if status, body := call(http.MethodDelete, "/api/habits/"+id, "", true); status != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d %v", status, body)
	}
}
