package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/identity"
)

func Test_accountApi_login(t *testing.T) {
	ta := newTestApp(t)
	if err := ta.schoolSvc.SetCredential(context.Background(), "S1", "junior@test.cd", "G00d#pass"); err != nil {
		t.Fatalf("SetCredential(): %v", err)
	}

	tests := []httpTest{
		{
			name: "empty body", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown email", body: marshallObj(t, echoapi.LoginRequest{Email: "nope@test.cd", Password: "G00d#pass"}),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: marshallObj(t, echoapi.LoginRequest{Email: "junior@test.cd", Password: "wrong"}),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "email is case-insensitive", body: marshallObj(t, echoapi.LoginRequest{Email: "JUNIOR@Test.CD", Password: "G00d#pass"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ta.do(newRequest(http.MethodPost, "/v1/account/login", tt.body))
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshalling LoginResponse: %v", err)
				}
				if resp.Token == "" {
					t.Error("empty token")
				}

				// the issued token authenticates
				me := ta.do(newAuthRequest(http.MethodGet, "/v1/account/me", resp.Token))
				if me.Code != http.StatusOK {
					t.Errorf("GET /me with issued token: code = %v; body %s", me.Code, me.Body.String())
				}
			}
		})
	}
}

func Test_accountApi_me(t *testing.T) {
	ta := newTestApp(t)
	ta.provider.Register("web-token", "T1", "ilunga@test.cd")

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "local token", token: ta.getToken(t, "S1", identity.RoleStudent), wantCode: http.StatusOK,
			wantData: marshallObj(t, echoapi.MeResponse{
				Role:    identity.RoleStudent,
				Profile: identity.Profile{ID: "S1", Name: "Junior Kalala", Email: "junior@test.cd", StudentNo: "std001"},
			}),
		},
		{
			name: "provider token", token: "web-token", wantCode: http.StatusOK,
			wantData: marshallObj(t, echoapi.MeResponse{
				Role:    identity.RoleTeacher,
				Profile: identity.Profile{ID: "T1", Name: "Mr Ilunga", Email: "ilunga@test.cd"},
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ta.do(newAuthRequest(http.MethodGet, "/v1/account/me", tt.token))
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_accountApi_refreshToken(t *testing.T) {
	ta := newTestApp(t)
	ta.provider.Register("web-token", "T1", "ilunga@test.cd")

	staleOriat := time.Now().Add(-(ta.conf.JWTRefreshExpirationDelta + time.Hour)).Unix()
	staleClaims := identity.NewClaims(ta.conf, identity.Profile{ID: "S1"}, identity.RoleStudent, staleOriat)
	staleToken, err := identity.GenerateToken(ta.conf, staleClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "local token refreshes", token: ta.getToken(t, "S1", identity.RoleStudent), wantCode: http.StatusOK},
		{
			name: "provider tokens are refreshed at the provider", token: "web-token",
			wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken),
		},
		{
			name: "refresh window expired", token: staleToken,
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "refresh has expired"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ta.do(newAuthRequest(http.MethodPost, "/v1/account/token-refresh", tt.token))
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshalling LoginResponse: %v", err)
				}
				if resp.Token == "" {
					t.Error("empty token")
				}
			}
		})
	}
}
