package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"

	"petpal/internal/config"
	mailport "petpal/internal/ports/mail"
	"petpal/internal/router"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailport.Message
}

func (m *fakeMailer) Send(_ context.Context, msg mailport.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) last(t *testing.T, to string) mailport.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == to {
			return m.sent[i]
		}
	}
	t.Fatalf("no mail sent to %s", to)
	return mailport.Message{}
}

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.SecretKey = "test-secret"
	cfg.BaseURL = "http://petpal.test"
	cfg.Upload.Dir = t.TempDir()
	cfg.BcryptCost = 4
	cfg.RateLimit.Enabled = false
	return cfg
}

func newServer(t *testing.T, cfg config.Config) (*httptest.Server, *fakeMailer) {
	t.Helper()
	mailer := &fakeMailer{}
	h, err := router.NewRouter(router.Options{Config: cfg, Mailer: mailer})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts, mailer
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func do(t *testing.T, c *http.Client, method, u string, form url.Values) (int, []byte) {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, u, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

var confirmLink = regexp.MustCompile(`http://petpal\.test/confirm/([^"]+)"`)

// signup registra y confirma un usuario; el cliente queda con sesión.
func signup(t *testing.T, ts *httptest.Server, mailer *fakeMailer, username, email string) *http.Client {
	t.Helper()
	c := newClient(t)

	st, body := do(t, c, "POST", ts.URL+"/register", url.Values{
		"username":     {username},
		"email":        {email},
		"password":     {"secret12"},
		"confirmation": {"secret12"},
	})
	if st != http.StatusAccepted {
		t.Fatalf("expected 202 register, got %d body=%s", st, body)
	}

	m := confirmLink.FindStringSubmatch(mailer.last(t, email).HTML)
	if m == nil {
		t.Fatalf("confirmation link not found in mail")
	}
	st, body = do(t, c, "GET", ts.URL+"/confirm/"+m[1], nil)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 confirm, got %d body=%s", st, body)
	}
	return c
}

func decodeID(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("missing id body=%s", body)
	}
	return resp.ID
}

func TestHTTP_RegisterConfirmLogin(t *testing.T) {
	ts, mailer := newServer(t, testConfig(t))
	alice := signup(t, ts, mailer, "alice", "alice@x.com")

	// sesión abierta por la confirmación
	if st, body := do(t, alice, "GET", ts.URL+"/", nil); st != http.StatusOK {
		t.Fatalf("expected 200 home, got %d body=%s", st, body)
	}

	// confirmar dos veces no crea otro usuario
	m := confirmLink.FindStringSubmatch(mailer.last(t, "alice@x.com").HTML)
	if st, _ := do(t, newClient(t), "GET", ts.URL+"/confirm/"+m[1], nil); st != http.StatusConflict {
		t.Fatalf("expected 409 on second confirm, got %d", st)
	}

	if st, _ := do(t, alice, "POST", ts.URL+"/logout", nil); st != http.StatusOK {
		t.Fatalf("expected 200 logout, got %d", st)
	}
	if st, _ := do(t, alice, "GET", ts.URL+"/", nil); st != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", st)
	}

	// email desconocido y password incorrecto responden igual
	st1, b1 := do(t, alice, "POST", ts.URL+"/login", url.Values{"email": {"alice@x.com"}, "password": {"wrong"}})
	st2, b2 := do(t, alice, "POST", ts.URL+"/login", url.Values{"email": {"nobody@x.com"}, "password": {"secret12"}})
	if st1 != http.StatusUnauthorized || st2 != http.StatusUnauthorized || !bytes.Equal(b1, b2) {
		t.Fatalf("expected identical 401s, got %d %s / %d %s", st1, b1, st2, b2)
	}

	if st, body := do(t, alice, "POST", ts.URL+"/login", url.Values{"email": {"Alice@x.com"}, "password": {"secret12"}}); st != http.StatusOK {
		t.Fatalf("expected 200 login, got %d body=%s", st, body)
	}
	if st, _ := do(t, alice, "GET", ts.URL+"/", nil); st != http.StatusOK {
		t.Fatalf("expected 200 home after login, got %d", st)
	}
}

func TestHTTP_ResetPassword(t *testing.T) {
	ts, mailer := newServer(t, testConfig(t))
	signup(t, ts, mailer, "alice", "alice@x.com")
	anon := newClient(t)

	if st, _ := do(t, anon, "POST", ts.URL+"/restore_password", url.Values{"email": {"ghost@x.com"}}); st != http.StatusNotFound {
		t.Fatalf("expected 404 unknown email, got %d", st)
	}
	if st, _ := do(t, anon, "POST", ts.URL+"/restore_password", url.Values{"email": {"alice@x.com"}}); st != http.StatusAccepted {
		t.Fatalf("expected 202 restore, got %d", st)
	}
	m := regexp.MustCompile(`http://petpal\.test/reset_password/([^"]+)"`).FindStringSubmatch(mailer.last(t, "alice@x.com").HTML)
	if m == nil {
		t.Fatalf("reset link not found")
	}

	form := url.Values{"password": {"newpass99"}, "confirmation": {"newpass99"}}
	if st, body := do(t, anon, "POST", ts.URL+"/reset_password/"+m[1], form); st != http.StatusOK {
		t.Fatalf("expected 200 reset, got %d body=%s", st, body)
	}
	// el token queda inválido al cambiar el password
	if st, _ := do(t, anon, "POST", ts.URL+"/reset_password/"+m[1], form); st != http.StatusUnauthorized {
		t.Fatalf("expected 401 reusing reset token, got %d", st)
	}
	if st, _ := do(t, anon, "POST", ts.URL+"/login", url.Values{"email": {"alice@x.com"}, "password": {"newpass99"}}); st != http.StatusOK {
		t.Fatalf("expected 200 login with new password, got %d", st)
	}
}

func TestHTTP_PublicRoutesAndSessionGate(t *testing.T) {
	ts, _ := newServer(t, testConfig(t))
	c := newClient(t)

	resp, err := c.Get(ts.URL + "/welcome")
	if err != nil {
		t.Fatalf("get welcome: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 welcome, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Cache-Control"); got != "no-cache, no-store, must-revalidate" {
		t.Fatalf("unexpected Cache-Control %q", got)
	}

	// navegador sin sesión va a /welcome
	req, _ := http.NewRequest("GET", ts.URL+"/", nil)
	req.Header.Set("Accept", "text/html")
	resp, err = c.Do(req)
	if err != nil {
		t.Fatalf("get home: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/welcome" {
		t.Fatalf("expected redirect to /welcome, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	if st, _ := do(t, c, "GET", ts.URL+"/species", nil); st != http.StatusUnauthorized {
		t.Fatalf("expected 401 species without session, got %d", st)
	}
	if st, _ := do(t, c, "GET", ts.URL+"/health", nil); st != http.StatusOK {
		t.Fatalf("expected 200 health, got %d", st)
	}
}

func TestHTTP_RateLimitedLogin(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Capacity = 2
	ts, _ := newServer(t, cfg)
	c := newClient(t)

	form := url.Values{"email": {"a@x.com"}, "password": {"x"}}
	for i := 0; i < 2; i++ {
		if st, _ := do(t, c, "POST", ts.URL+"/login", form); st != http.StatusUnauthorized {
			t.Fatalf("expected 401 attempt %d, got %d", i+1, st)
		}
	}
	if st, _ := do(t, c, "POST", ts.URL+"/login", form); st != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", st)
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func uploadPhoto(t *testing.T, c *http.Client, u string) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "Beach day")
	fw, err := mw.CreateFormFile("image", "beach.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write(pngBytes(t))
	_ = mw.Close()

	req, _ := http.NewRequest("POST", u, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func TestHTTP_PetRecordsAndDelegation(t *testing.T) {
	ts, mailer := newServer(t, testConfig(t))
	owner := signup(t, ts, mailer, "alice", "alice@x.com")
	bob := signup(t, ts, mailer, "bob", "bob@x.com")

	st, body := do(t, owner, "POST", ts.URL+"/new_pet", url.Values{
		"name": {"Milo"}, "species": {"dog"}, "breed": {"dog-beagle"}, "sex": {"M"}, "birth_date": {"2020-01-01"},
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 new pet, got %d body=%s", st, body)
	}
	petID := decodeID(t, body)

	// raza de otra especie
	if st, _ := do(t, owner, "POST", ts.URL+"/new_pet", url.Values{
		"name": {"Tom"}, "species": {"cat"}, "breed": {"dog-beagle"}, "sex": {"M"},
	}); st != http.StatusBadRequest {
		t.Fatalf("expected 400 breed mismatch, got %d", st)
	}

	// bob no ve nada hasta tener grant
	if st, _ := do(t, bob, "GET", ts.URL+"/pets/"+petID, nil); st != http.StatusForbidden {
		t.Fatalf("expected 403 before grant, got %d", st)
	}

	st, body = do(t, owner, "POST", ts.URL+"/pets/"+petID+"/grants", url.Values{
		"email":  {"bob@x.com"},
		"scopes": {"pet:read,records:read"},
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 invite, got %d body=%s", st, body)
	}
	grantID := decodeID(t, body)

	if st, _ := do(t, owner, "POST", ts.URL+"/pets/"+petID+"/grants", url.Values{
		"email": {"bob@x.com"}, "scopes": {"records:delete"},
	}); st != http.StatusBadRequest {
		t.Fatalf("expected 400 unknown scope, got %d", st)
	}

	if st, body := do(t, bob, "POST", ts.URL+"/grants/"+grantID+"/accept", nil); st != http.StatusOK {
		t.Fatalf("expected 200 accept, got %d body=%s", st, body)
	}

	// registros del dueño
	if st, body := do(t, owner, "POST", ts.URL+"/add/weight/"+petID, url.Values{
		"date": {"2026-05-03"}, "weight_kg": {"4,2"},
	}); st != http.StatusCreated {
		t.Fatalf("expected 201 add weight, got %d body=%s", st, body)
	}
	if st, _ := do(t, owner, "POST", ts.URL+"/add/grooming/"+petID, url.Values{"date": {"2026-05-03"}}); st != http.StatusBadRequest {
		t.Fatalf("expected 400 unknown tracker, got %d", st)
	}
	st, body = do(t, owner, "POST", ts.URL+"/new_entry/"+petID, url.Values{
		"title": {"First walk"}, "date": {"2026-05-04"}, "content": {"Loved it"},
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 new entry, got %d body=%s", st, body)
	}
	st, body = uploadPhoto(t, owner, ts.URL+"/upload_photo/"+petID)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 upload, got %d body=%s", st, body)
	}
	var photo struct {
		URL string `json:"url"`
	}
	_ = json.Unmarshal(body, &photo)
	if st, _ := do(t, owner, "GET", ts.URL+photo.URL, nil); st != http.StatusOK {
		t.Fatalf("expected 200 serving upload, got %d", st)
	}
	// las imágenes son públicas por nombre; el nombre es un uuid
	resp, err := http.Get(ts.URL + photo.URL)
	if err != nil {
		t.Fatalf("anonymous get upload: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected 200 with nosniff, got %d %q", resp.StatusCode, resp.Header.Get("X-Content-Type-Options"))
	}
	if st, _ := do(t, owner, "GET", ts.URL+"/uploads/../go.mod", nil); st != http.StatusNotFound {
		t.Fatalf("expected 404 for traversal, got %d", st)
	}

	// bob con records:read lee pero no escribe
	if st, _ := do(t, bob, "GET", ts.URL+"/"+petID, nil); st != http.StatusOK {
		t.Fatalf("expected 200 trackers home for delegate, got %d", st)
	}
	st, body = do(t, bob, "GET", ts.URL+"/"+petID+"/weight_graph?month=5&year=2026", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 weight graph, got %d body=%s", st, body)
	}
	var chart struct {
		Chart *string `json:"chart"`
	}
	_ = json.Unmarshal(body, &chart)
	if chart.Chart == nil || !strings.Contains(*chart.Chart, "<svg") {
		t.Fatalf("expected svg chart, body=%s", body)
	}
	if st, _ := do(t, bob, "GET", ts.URL+"/logs/"+petID, nil); st != http.StatusOK {
		t.Fatalf("expected 200 logs for delegate, got %d", st)
	}
	if st, _ := do(t, bob, "POST", ts.URL+"/add/weight/"+petID, url.Values{"date": {"2026-05-05"}, "weight_kg": {"5"}}); st != http.StatusForbidden {
		t.Fatalf("expected 403 delegate write, got %d", st)
	}
	if st, _ := do(t, bob, "POST", ts.URL+"/delete_pet/"+petID, nil); st != http.StatusForbidden {
		t.Fatalf("expected 403 delegate delete, got %d", st)
	}

	if st, _ := do(t, owner, "POST", ts.URL+"/grants/"+grantID+"/revoke", nil); st != http.StatusOK {
		t.Fatalf("expected 200 revoke, got %d", st)
	}
	if st, _ := do(t, bob, "GET", ts.URL+"/"+petID, nil); st != http.StatusForbidden {
		t.Fatalf("expected 403 after revoke, got %d", st)
	}

	// borrar la mascota borra registros y archivos
	if st, body := do(t, owner, "POST", ts.URL+"/delete_pet/"+petID, nil); st != http.StatusOK {
		t.Fatalf("expected 200 delete pet, got %d body=%s", st, body)
	}
	if st, _ := do(t, owner, "GET", ts.URL+"/pets/"+petID, nil); st != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", st)
	}
	if st, _ := do(t, owner, "GET", ts.URL+photo.URL, nil); st != http.StatusNotFound {
		t.Fatalf("expected 404 for removed upload, got %d", st)
	}
}

func TestHTTP_MalformedFormsAfterAuthorization(t *testing.T) {
	ts, mailer := newServer(t, testConfig(t))
	owner := signup(t, ts, mailer, "alice", "alice@x.com")
	stranger := signup(t, ts, mailer, "mallory", "mallory@x.com")

	st, body := do(t, owner, "POST", ts.URL+"/new_pet", url.Values{"name": {"Milo"}, "species": {"dog"}, "sex": {"M"}})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 new pet, got %d body=%s", st, body)
	}
	petID := decodeID(t, body)

	cases := []struct {
		name string
		path string
		form url.Values
	}{
		{"tracker", "/add/weight/%s", url.Values{"date": {"bad"}, "weight_kg": {"Inf"}}},
		{"journal", "/new_entry/%s", url.Values{"title": {"x"}, "content": {"y"}, "date": {"bad"}}},
		{"profile", "/edit_pet/%s", url.Values{"name": {"Milo"}, "species": {"dog"}, "sex": {"M"}, "birth_date": {"bad"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if st, body := do(t, stranger, "POST", ts.URL+fmt.Sprintf(tc.path, petID), tc.form); st != http.StatusForbidden {
				t.Fatalf("expected 403 for non-owner, got %d body=%s", st, body)
			}
			if st, body := do(t, owner, "POST", ts.URL+fmt.Sprintf(tc.path, "no-such-pet"), tc.form); st != http.StatusNotFound {
				t.Fatalf("expected 404 for unknown pet, got %d body=%s", st, body)
			}
			if st, body := do(t, owner, "POST", ts.URL+fmt.Sprintf(tc.path, petID), tc.form); st != http.StatusBadRequest {
				t.Fatalf("expected 400 for owner, got %d body=%s", st, body)
			}
		})
	}
}

func TestHTTP_InfiniteWeightIsRejected(t *testing.T) {
	ts, mailer := newServer(t, testConfig(t))
	owner := signup(t, ts, mailer, "alice", "alice@x.com")

	_, body := do(t, owner, "POST", ts.URL+"/new_pet", url.Values{"name": {"Milo"}, "species": {"dog"}, "sex": {"M"}})
	petID := decodeID(t, body)

	st, body := do(t, owner, "POST", ts.URL+"/add/weight/"+petID, url.Values{"date": {"2026-01-02"}, "weight_kg": {"Inf"}})
	if st != http.StatusBadRequest || !strings.Contains(string(body), "weight_kg") {
		t.Fatalf("expected 400 on weight_kg, got %d body=%s", st, body)
	}
}
