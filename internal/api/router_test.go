package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"foodshare-service/internal/adapters/memory"
	"foodshare-service/internal/adapters/notify"
	"foodshare-service/internal/api/dto"
	"foodshare-service/internal/platform/auth"
	"foodshare-service/internal/services"
)

type apiFixture struct {
	t      *testing.T
	server *httptest.Server
	store  *memory.Store
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store := memory.NewStore()
	resolver := services.NewEligibilityResolver(store, nil)
	cfg := services.DispatchConfig{Interval: 5 * time.Millisecond, BatchSize: 10}
	dispatcher := services.NewDispatcher(cfg, store, store, store, resolver, notify.LogTransport{})
	t.Cleanup(dispatcher.StopAll)

	arbiter := services.NewClaimArbiter(store, store, dispatcher)
	sessions := auth.NewSessionManager("test-secret", 20*time.Minute, store, store)

	server := httptest.NewServer(NewRouter(arbiter, store, store, sessions))
	t.Cleanup(server.Close)

	return &apiFixture{t: t, server: server, store: store}
}

// post sends a JSON body and decodes the JSON response into out when the
// status matches.
func (f *apiFixture) post(path, token string, body, out any, wantStatus int) {
	f.t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		f.t.Fatalf("marshal request: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, f.server.URL+path, bytes.NewReader(raw))
	if err != nil {
		f.t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := f.server.Client().Do(req)
	if err != nil {
		f.t.Fatalf("POST %s: %v", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode != wantStatus {
		f.t.Fatalf("POST %s status = %d, want %d", path, res.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			f.t.Fatalf("decode %s response: %v", path, err)
		}
	}
}

func (f *apiFixture) register(req dto.RegisterRequest) {
	f.t.Helper()
	f.post("/api/user/register", "", req, nil, http.StatusOK)
}

func (f *apiFixture) login(username, password string) string {
	f.t.Helper()
	var res dto.LoginResponse
	f.post("/api/user/login", "", dto.Credentials{Username: username, Password: password}, &res, http.StatusOK)
	if res.SessionToken == "" {
		f.t.Fatal("login returned empty token")
	}
	return res.SessionToken
}

func (f *apiFixture) listPackages(token string) []dto.PackageInfo {
	f.t.Helper()
	var res dto.ListPackagesResponse
	f.post("/api/package/getpackages", token, dto.ListPackagesRequest{}, &res, http.StatusOK)
	return res.Packages
}

func (f *apiFixture) waitForPackages(token string, n int) []dto.PackageInfo {
	f.t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if pkgs := f.listPackages(token); len(pkgs) >= n {
			return pkgs
		}
		time.Sleep(5 * time.Millisecond)
	}
	f.t.Fatalf("client never saw %d packages", n)
	return nil
}

func boolPtr(b bool) *bool { return &b }

func TestPackageLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	f.register(dto.RegisterRequest{
		Username: "bakery", Password: "pw", UserType: "business",
		Name: "Corner Bakery", Address: "12 Oven Ln",
	})
	f.register(dto.RegisterRequest{
		Username: "ana", Password: "pw", UserType: "client", FirstName: "Ana",
	})

	bizToken := f.login("bakery", "pw")
	clientToken := f.login("ana", "pw")

	f.post("/api/package/createpackage", bizToken, dto.CreatePackageRequest{
		Name: "day-old bread", Quantity: "3 loaves", Price: 1.5,
	}, nil, http.StatusOK)

	// The dispatch loop notifies the client, which makes the package
	// visible in their listing.
	pkgs := f.waitForPackages(clientToken, 1)
	pkg := pkgs[0]
	if pkg.BusinessName != "Corner Bakery" || pkg.BusinessAddress != "12 Oven Ln" {
		t.Fatalf("pickup details = %q %q", pkg.BusinessName, pkg.BusinessAddress)
	}
	if pkg.ClaimerCID != nil {
		t.Fatalf("package already claimed: %+v", pkg)
	}

	f.post("/api/package/claim", clientToken, dto.ClaimRequest{
		PID: pkg.PID, Claim: boolPtr(true),
	}, nil, http.StatusOK)

	owned := f.listPackages(bizToken)
	if len(owned) != 1 || owned[0].ClaimerCID == nil {
		t.Fatalf("owner listing after claim: %+v", owned)
	}
	if owned[0].Claimed == nil {
		t.Fatal("claim timestamp not set")
	}

	f.post("/api/package/markreceived", bizToken, dto.PackageIDRequest{PID: pkg.PID}, nil, http.StatusOK)

	// Received is terminal.
	f.post("/api/package/markreceived", bizToken, dto.PackageIDRequest{PID: pkg.PID}, nil, http.StatusBadRequest)
}

func TestClaimWithoutNoticeRejectedOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	f.register(dto.RegisterRequest{
		Username: "bakery", Password: "pw", UserType: "business", Name: "B", Address: "a",
	})
	f.register(dto.RegisterRequest{Username: "ana", Password: "pw", UserType: "client", Paying: true})
	f.register(dto.RegisterRequest{Username: "ben", Password: "pw", UserType: "client"})

	bizToken := f.login("bakery", "pw")
	anaToken := f.login("ana", "pw")
	benToken := f.login("ben", "pw")

	f.post("/api/package/createpackage", bizToken, dto.CreatePackageRequest{Name: "p"}, nil, http.StatusOK)

	pkgs := f.waitForPackages(anaToken, 1)
	pid := pkgs[0].PID

	// Ana claims first; Ben's later claim loses.
	f.post("/api/package/claim", anaToken, dto.ClaimRequest{PID: pid, Claim: boolPtr(true)}, nil, http.StatusOK)
	f.post("/api/package/claim", benToken, dto.ClaimRequest{PID: pid, Claim: boolPtr(true)}, nil, http.StatusForbidden)

	// Unclaim reopens the package and redispatches notices.
	f.post("/api/package/claim", anaToken, dto.ClaimRequest{PID: pid, Claim: boolPtr(false)}, nil, http.StatusOK)
	f.waitForPackages(benToken, 1)
}

func TestRoleEnforcementOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	f.register(dto.RegisterRequest{Username: "ana", Password: "pw", UserType: "client"})
	clientToken := f.login("ana", "pw")

	// Clients cannot publish packages.
	f.post("/api/package/createpackage", clientToken, dto.CreatePackageRequest{Name: "p"}, nil, http.StatusForbidden)

	// Session-gated routes reject missing tokens.
	f.post("/api/package/getpackages", "", dto.ListPackagesRequest{}, nil, http.StatusUnauthorized)
}

func TestAccountEndpointsOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	f.register(dto.RegisterRequest{
		Username: "ana", Password: "pw", UserType: "client",
		FirstName: "Ana", Email: "ana@example.com",
	})
	token := f.login("ana", "pw")

	var info dto.UserInfoResponse
	f.post("/api/user/getinfo", token, struct{}{}, &info, http.StatusOK)
	if info.Username != "ana" || info.UserType != "client" || info.FirstName != "Ana" {
		t.Fatalf("info = %+v", info)
	}

	var ut dto.UserTypeResponse
	f.post("/api/user/getusertype", token, struct{}{}, &ut, http.StatusOK)
	if ut.UserType != "client" {
		t.Fatalf("user type = %q", ut.UserType)
	}

	f.post("/api/user/setpassword", "", dto.SetPasswordRequest{
		Credentials: dto.Credentials{Username: "ana", Password: "pw"},
		NewPassword: "pw2",
	}, nil, http.StatusOK)

	f.post("/api/user/login", "", dto.Credentials{Username: "ana", Password: "pw"}, nil, http.StatusUnauthorized)
	token = f.login("ana", "pw2")

	f.post("/api/user/logout", token, struct{}{}, nil, http.StatusOK)
	f.post("/api/user/getinfo", token, struct{}{}, nil, http.StatusUnauthorized)
}

func TestSetInfoUsernameRules(t *testing.T) {
	f := newAPIFixture(t)

	f.register(dto.RegisterRequest{Username: "ana", Password: "pw", UserType: "client"})
	f.register(dto.RegisterRequest{Username: "ben", Password: "pw", UserType: "client"})

	// A blank new username would wipe the login name.
	f.post("/api/user/setinfo", "", dto.SetInfoRequest{
		Credentials: dto.Credentials{Username: "ana", Password: "pw"},
	}, nil, http.StatusBadRequest)

	// Someone else's username is rejected before the write.
	f.post("/api/user/setinfo", "", dto.SetInfoRequest{
		Credentials: dto.Credentials{Username: "ana", Password: "pw"},
		NewUsername: "ben",
	}, nil, http.StatusConflict)

	// Keeping the current username is not a conflict.
	f.post("/api/user/setinfo", "", dto.SetInfoRequest{
		Credentials: dto.Credentials{Username: "ana", Password: "pw"},
		NewUsername: "ana",
		FirstName:   "Ana",
	}, nil, http.StatusOK)

	// A genuine rename takes effect for the next login.
	f.post("/api/user/setinfo", "", dto.SetInfoRequest{
		Credentials: dto.Credentials{Username: "ana", Password: "pw"},
		NewUsername: "ana2",
	}, nil, http.StatusOK)
	f.post("/api/user/login", "", dto.Credentials{Username: "ana", Password: "pw"}, nil, http.StatusUnauthorized)
	f.login("ana2", "pw")
}

func TestRegisterValidationOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	f.post("/api/user/register", "", dto.RegisterRequest{
		Username: "x", Password: "pw", UserType: "alien",
	}, nil, http.StatusBadRequest)

	f.register(dto.RegisterRequest{Username: "ana", Password: "pw", UserType: "client"})
	f.post("/api/user/register", "", dto.RegisterRequest{
		Username: "ana", Password: "pw", UserType: "client",
	}, nil, http.StatusConflict)
}
