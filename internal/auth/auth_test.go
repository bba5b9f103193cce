package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "user-1",
		"email": "A@X.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"role":  "authenticated",
		"user_metadata": map[string]any{
			"full_name": "A. Lee",
		},
	}
}

func TestVerifier_Verify(t *testing.T) {
	v := NewVerifier(testSecret, "admin")

	for _, tc := range []struct {
		name      string
		mutate    func(jwt.MapClaims)
		wantAdmin bool
	}{
		{name: "RegularUser", mutate: func(jwt.MapClaims) {}},
		{name: "AdminByRole", mutate: func(c jwt.MapClaims) {
			c["app_metadata"] = map[string]any{"role": "admin"}
		}, wantAdmin: true},
		{name: "AdminByFlag", mutate: func(c jwt.MapClaims) {
			c["app_metadata"] = map[string]any{"is_admin": true}
		}, wantAdmin: true},
		{name: "UserMetadataCannotGrantAdmin", mutate: func(c jwt.MapClaims) {
			c["user_metadata"] = map[string]any{"role": "admin", "is_admin": true}
		}},
		{name: "OtherRole", mutate: func(c jwt.MapClaims) {
			c["app_metadata"] = map[string]any{"role": "editor"}
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := baseClaims()
			tc.mutate(c)
			id, err := v.Verify(signToken(t, testSecret, jwt.SigningMethodHS256, c))
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if id.UserID != "user-1" || id.Email != "a@x.com" {
				t.Errorf("identity = %+v", id)
			}
			if id.IsAdmin != tc.wantAdmin {
				t.Errorf("IsAdmin = %v, want %v", id.IsAdmin, tc.wantAdmin)
			}
		})
	}
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier(testSecret, "admin")

	expired := baseClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	noExp := baseClaims()
	delete(noExp, "exp")

	noSub := baseClaims()
	delete(noSub, "sub")

	for _, tc := range []struct {
		name  string
		token string
	}{
		{"WrongSecret", signToken(t, "another-secret-another-secret-another", jwt.SigningMethodHS256, baseClaims())},
		{"WrongAlgorithm", signToken(t, testSecret, jwt.SigningMethodHS512, baseClaims())},
		{"Expired", signToken(t, testSecret, jwt.SigningMethodHS256, expired)},
		{"MissingExpiry", signToken(t, testSecret, jwt.SigningMethodHS256, noExp)},
		{"MissingSubject", signToken(t, testSecret, jwt.SigningMethodHS256, noSub)},
		{"Garbage", "not.a.token"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.Verify(tc.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	if got := displayName(map[string]any{"name": "Bo"}); got != "Bo" {
		t.Errorf("got %q", got)
	}
	if got := displayName(map[string]any{"full_name": "Full", "name": "Short"}); got != "Full" {
		t.Errorf("got %q", got)
	}
	if got := displayName(nil); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) != nil {
		t.Fatal("expected nil identity")
	}
	v := NewVerifier(testSecret, "admin")
	id, err := v.Verify(signToken(t, testSecret, jwt.SigningMethodHS256, baseClaims()))
	if err != nil {
		t.Fatal(err)
	}
	if got := FromContext(WithIdentity(ctx, id)); got != id {
		t.Errorf("FromContext = %+v", got)
	}
}

func TestBearerToken(t *testing.T) {
	for _, tc := range []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	} {
		got, ok := BearerToken(tc.header)
		if got != tc.want || ok != tc.ok {
			t.Errorf("BearerToken(%q) = %q, %v", tc.header, got, ok)
		}
	}
}
