package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/api"
	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/claims"
	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/upstream"
)

// fakeUpstream stands in for the claims backend.
type fakeUpstream struct {
	mu            sync.Mutex
	tokenCalls    int
	calls         []string
	reject401     int
	statusAnswer  int
	processAnswer int
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == "/oauth2/token" {
		f.tokenCalls++
		fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"Bearer"}`, f.tokenCalls)
		return
	}

	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	if f.reject401 > 0 {
		f.reject401--
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"invalid_token"}`)
		return
	}

	switch r.URL.Path {
	case "/poliza_siniestros/api/v1/procesar":
		w.WriteHeader(f.processAnswer)
		_, _ = io.WriteString(w, `{"codigo":"00","mensaje":"OK"}`)
	case "/poliza_siniestros/api/v1/proceso/estado":
		w.WriteHeader(f.statusAnswer)
		_, _ = io.WriteString(w, `{"estado":"PROCESADO"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{}`)
	}
}

type gatewayWorld struct {
	t *testing.T

	upstream *fakeUpstream
	backend  *httptest.Server
	gateway  *httptest.Server
	strict   bool

	status int
	body   map[string]any
}

func newGatewayWorld(t *testing.T) *gatewayWorld {
	return &gatewayWorld{t: t}
}

func (w *gatewayWorld) Register(sc *godog.ScenarioContext) {
	sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		if w.gateway != nil {
			w.gateway.Close()
		}
		if w.backend != nil {
			w.backend.Close()
		}
		return ctx, nil
	})

	sc.Step(`^the upstream is healthy$`, w.upstreamIsHealthy)
	sc.Step(`^the upstream rejects the next (\d+) business calls? with 401$`, w.upstreamRejects)
	sc.Step(`^the upstream status endpoint answers (\d+)$`, w.statusEndpointAnswers)
	sc.Step(`^the upstream process endpoint answers (\d+)$`, w.processEndpointAnswers)
	sc.Step(`^reserve follow-up failures are strict$`, w.strictReserve)

	sc.Step(`^I send a valid "([^"]+)" request$`, w.sendValid)
	sc.Step(`^I send a "([^"]+)" request without "([^"]+)"$`, w.sendWithout)
	sc.Step(`^I send a "([^"]+)" request with "([^"]+)" set to "([^"]*)"$`, w.sendWithField)

	sc.Step(`^the response status is (\d+)$`, w.responseStatusIs)
	sc.Step(`^the response field "([^"]+)" equals "([^"]*)"$`, w.fieldEquals)
	sc.Step(`^the response field "([^"]+)" contains "([^"]*)"$`, w.fieldContains)
	sc.Step(`^the response field "([^"]+)" is (true|false)$`, w.fieldIsBool)
	sc.Step(`^the upstream received (\d+) token requests?$`, w.tokenRequests)
	sc.Step(`^the upstream received (\d+) business calls?$`, w.businessCalls)
	sc.Step(`^the upstream received a process call followed by a status query$`, w.processThenStatus)
}

func (w *gatewayWorld) debugf(format string, args ...any) {
	if os.Getenv("BDD_DEBUG") != "" {
		w.t.Logf(format, args...)
	}
}

func (w *gatewayWorld) upstreamIsHealthy() error {
	w.upstream = &fakeUpstream{statusAnswer: http.StatusOK, processAnswer: http.StatusOK}
	w.backend = httptest.NewServer(w.upstream)
	return nil
}

func (w *gatewayWorld) upstreamRejects(n int) error {
	w.upstream.reject401 = n
	return nil
}

func (w *gatewayWorld) statusEndpointAnswers(code int) error {
	w.upstream.statusAnswer = code
	return nil
}

func (w *gatewayWorld) processEndpointAnswers(code int) error {
	w.upstream.processAnswer = code
	return nil
}

func (w *gatewayWorld) strictReserve() error {
	w.strict = true
	return nil
}

// ensureGateway wires the real stack against the fake backend on first use.
func (w *gatewayWorld) ensureGateway() error {
	if w.gateway != nil {
		return nil
	}
	if w.backend == nil {
		return fmt.Errorf("upstream not started")
	}
	logger := log.New(io.Discard, "", 0)
	if os.Getenv("BDD_DEBUG") != "" {
		logger = log.New(os.Stderr, "[bdd] ", log.Lmicroseconds)
	}

	tokens := upstream.NewTokenManager(w.backend.URL, upstream.Credentials{ClientID: "gw", ClientSecret: "secret"}, w.backend.Client(), logger)
	client := upstream.NewClient(w.backend.URL, tokens, w.backend.Client(), logger)
	svc := claims.NewService(client, claims.Options{
		FollowUpDelay: 5 * time.Millisecond,
		Reserve: claims.ReserveProfile{
			EntidadColocadora: "183",
			SistemaOrigen:     "194",
			IDCanal:           "3",
			UsuarioCreacion:   "gateway",
		},
		StrictReserveFollowUp: w.strict,
	}, logger)

	h, err := api.NewHandler(svc, nil, nil, api.Options{}, logger)
	if err != nil {
		return err
	}
	w.gateway = httptest.NewServer(h.Routes())
	return nil
}

func loadFixture(route string) (map[string]any, error) {
	raw, err := os.ReadFile(filepath.Join("testdata", strings.ReplaceAll(route, "-", "_")+".json"))
	if err != nil {
		return nil, err
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return body, nil
}

func (w *gatewayWorld) sendValid(route string) error {
	body, err := loadFixture(route)
	if err != nil {
		return err
	}
	return w.send(route, body)
}

func (w *gatewayWorld) sendWithout(route, field string) error {
	body, err := loadFixture(route)
	if err != nil {
		return err
	}
	delete(body, field)
	return w.send(route, body)
}

func (w *gatewayWorld) sendWithField(route, field, value string) error {
	body, err := loadFixture(route)
	if err != nil {
		return err
	}
	body[field] = value
	return w.send(route, body)
}

func (w *gatewayWorld) send(route string, body map[string]any) error {
	if err := w.ensureGateway(); err != nil {
		return err
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(w.gateway.URL+"/"+route, "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	w.debugf("POST /%s -> %d %s", route, resp.StatusCode, raw)
	w.status = resp.StatusCode
	w.body = nil
	return json.Unmarshal(raw, &w.body)
}

func (w *gatewayWorld) responseStatusIs(code int) error {
	if w.status != code {
		return fmt.Errorf("expected status %d, got %d (%v)", code, w.status, w.body)
	}
	return nil
}

// field walks a dotted path through the last JSON response.
func (w *gatewayWorld) field(path string) (any, error) {
	var cur any = w.body
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: %q is not an object", path, part)
		}
		if cur, ok = m[part]; !ok {
			return nil, fmt.Errorf("%s: missing %q in %v", path, part, m)
		}
	}
	return cur, nil
}

func (w *gatewayWorld) fieldEquals(path, want string) error {
	got, err := w.field(path)
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != want {
		return fmt.Errorf("%s: expected %q, got %v", path, want, got)
	}
	return nil
}

func (w *gatewayWorld) fieldContains(path, want string) error {
	got, err := w.field(path)
	if err != nil {
		return err
	}
	if !strings.Contains(fmt.Sprint(got), want) {
		return fmt.Errorf("%s: expected to contain %q, got %v", path, want, got)
	}
	return nil
}

func (w *gatewayWorld) fieldIsBool(path, want string) error {
	got, err := w.field(path)
	if err != nil {
		return err
	}
	b, ok := got.(bool)
	if !ok {
		return fmt.Errorf("%s: expected a boolean, got %T", path, got)
	}
	if strconv.FormatBool(b) != want {
		return fmt.Errorf("%s: expected %s, got %t", path, want, b)
	}
	return nil
}

func (w *gatewayWorld) tokenRequests(n int) error {
	w.upstream.mu.Lock()
	defer w.upstream.mu.Unlock()
	if w.upstream.tokenCalls != n {
		return fmt.Errorf("expected %d token requests, got %d", n, w.upstream.tokenCalls)
	}
	return nil
}

func (w *gatewayWorld) businessCalls(n int) error {
	w.upstream.mu.Lock()
	defer w.upstream.mu.Unlock()
	if len(w.upstream.calls) != n {
		return fmt.Errorf("expected %d business calls, got %d: %v", n, len(w.upstream.calls), w.upstream.calls)
	}
	return nil
}

func (w *gatewayWorld) processThenStatus() error {
	w.upstream.mu.Lock()
	defer w.upstream.mu.Unlock()
	want := []string{
		"POST /poliza_siniestros/api/v1/procesar",
		"GET /poliza_siniestros/api/v1/proceso/estado",
	}
	if fmt.Sprint(w.upstream.calls) != fmt.Sprint(want) {
		return fmt.Errorf("expected calls %v, got %v", want, w.upstream.calls)
	}
	return nil
}
