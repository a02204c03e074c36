package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/skillgate-go/internal/core/domain"
	"github.com/yndnr/skillgate-go/internal/core/identity"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestAuthenticator(repo *mockRepo) *Authenticator {
	return NewAuthenticator(repo, &AuthenticatorConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:  func() time.Time { return testNow },
	})
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	repo := newMockRepo()
	auth := newTestAuthenticator(repo)
	valid := "ask_live_" + strings.Repeat("a", 64)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic " + valid},
		{"scheme only", "Bearer"},
		{"empty token", "Bearer "},
		{"extra fields", "Bearer " + valid + " extra"},
		{"no scheme", valid},
		{"wrong prefix", "Bearer ask_test_" + strings.Repeat("a", 64)},
		{"short body", "Bearer ask_live_" + strings.Repeat("a", 63)},
		{"uppercase hex", "Bearer ask_live_" + strings.Repeat("A", 64)},
		{"non-hex", "Bearer ask_live_" + strings.Repeat("z", 64)},
		{"binary garbage", "Bearer \x00\xff\xfe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Authenticate(context.Background(), tt.header)
			if got := domain.GetErrorCode(err); got != domain.CodeInvalidTokenFormat {
				t.Errorf("Authenticate() code = %q, want %q", got, domain.CodeInvalidTokenFormat)
			}
		})
	}

	if n := repo.lookups.Load(); n != 0 {
		t.Errorf("store lookups = %d, want 0 for malformed input", n)
	}
}

func TestAuthenticate_SchemeCaseInsensitive(t *testing.T) {
	repo := newMockRepo()
	repo.addUser("usr-1", true)
	plaintext := repo.addToken("tok-1", "usr-1", true, nil)
	auth := newTestAuthenticator(repo)

	if _, err := auth.Authenticate(context.Background(), "bearer "+plaintext); err != nil {
		t.Errorf("Authenticate() error = %v, want nil", err)
	}
}

func TestAuthenticate_Classification(t *testing.T) {
	past := testNow.Add(-time.Minute)
	future := testNow.Add(time.Minute)
	exact := testNow

	tests := []struct {
		name      string
		userOK    bool
		userSeed  bool
		active    bool
		expiresAt *time.Time
		want      string
	}{
		{"valid no expiry", true, true, true, nil, ""},
		{"valid future expiry", true, true, true, &future, ""},
		{"revoked not expired", true, true, false, &future, domain.CodeTokenRevoked},
		{"revoked and expired", true, true, false, &past, domain.CodeTokenRevoked},
		{"expired", true, true, true, &past, domain.CodeTokenExpired},
		{"expires exactly now", true, true, true, &exact, domain.CodeTokenExpired},
		{"owner inactive", false, true, true, nil, domain.CodeTokenRevoked},
		{"owner inactive and expired", false, true, true, &past, domain.CodeTokenRevoked},
		{"owner missing", false, false, true, nil, domain.CodeTokenRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepo()
			if tt.userSeed {
				repo.addUser("usr-1", tt.userOK)
			}
			plaintext := repo.addToken("tok-1", "usr-1", tt.active, tt.expiresAt)
			auth := newTestAuthenticator(repo)

			id, err := auth.Authenticate(context.Background(), "Bearer "+plaintext)
			if got := domain.GetErrorCode(err); got != tt.want {
				t.Fatalf("Authenticate() code = %q, want %q (err=%v)", got, tt.want, err)
			}
			if tt.want == "" {
				want := identity.Identity{UserID: "usr-1", TokenID: "tok-1"}
				if id != want {
					t.Errorf("Authenticate() = %+v, want %+v", id, want)
				}
				if n := repo.markUsed.Load(); n != 1 {
					t.Errorf("MarkUsed calls = %d, want 1", n)
				}
			} else if n := repo.markUsed.Load(); n != 0 {
				t.Errorf("MarkUsed calls = %d, want 0 on failure", n)
			}
		})
	}
}

func TestAuthenticate_UnknownDigest(t *testing.T) {
	repo := newMockRepo()
	auth := newTestAuthenticator(repo)

	_, err := auth.Authenticate(context.Background(), "Bearer ask_live_"+strings.Repeat("0", 64))
	if got := domain.GetErrorCode(err); got != domain.CodeTokenNotFound {
		t.Errorf("Authenticate() code = %q, want %q", got, domain.CodeTokenNotFound)
	}
	if n := repo.lookups.Load(); n != 1 {
		t.Errorf("store lookups = %d, want 1", n)
	}
}

func TestAuthenticate_StoreFailure(t *testing.T) {
	repo := newMockRepo()
	repo.lookupErr = errors.New("disk on fire")
	auth := newTestAuthenticator(repo)

	_, err := auth.Authenticate(context.Background(), "Bearer ask_live_"+strings.Repeat("0", 64))
	if got := domain.GetErrorCode(err); got != domain.CodeInternalServerError {
		t.Errorf("Authenticate() code = %q, want %q", got, domain.CodeInternalServerError)
	}
}

func TestAuthenticate_MarkUsedFailureIgnored(t *testing.T) {
	repo := newMockRepo()
	repo.addUser("usr-1", true)
	plaintext := repo.addToken("tok-1", "usr-1", true, nil)
	repo.markErr = errors.New("read-only")
	auth := newTestAuthenticator(repo)

	if _, err := auth.Authenticate(context.Background(), "Bearer "+plaintext); err != nil {
		t.Errorf("Authenticate() error = %v, want nil", err)
	}
}

func TestAuthenticate_MarksUsed(t *testing.T) {
	repo := newMockRepo()
	repo.addUser("usr-1", true)
	plaintext := repo.addToken("tok-1", "usr-1", true, nil)
	auth := newTestAuthenticator(repo)

	if _, err := auth.Authenticate(context.Background(), "Bearer "+plaintext); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	tok, _ := repo.GetToken(context.Background(), "tok-1")
	if tok.LastUsedAt == nil || !tok.LastUsedAt.Equal(testNow) {
		t.Errorf("LastUsedAt = %v, want %v", tok.LastUsedAt, testNow)
	}
}

func TestAuthenticate_ConcurrentMarkUsed(t *testing.T) {
	repo := newMockRepo()
	repo.addUser("usr-1", true)
	plaintext := repo.addToken("tok-1", "usr-1", true, nil)
	auth := newTestAuthenticator(repo)

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := auth.Authenticate(context.Background(), "Bearer "+plaintext); err != nil {
				t.Errorf("Authenticate() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := repo.markUsed.Load(); got != n {
		t.Errorf("MarkUsed calls = %d, want %d", got, n)
	}
}

func TestExtractBearer(t *testing.T) {
	tok, err := ExtractBearer("Bearer  abc ")
	if err != nil {
		t.Fatalf("ExtractBearer() error = %v", err)
	}
	if tok != "abc" {
		t.Errorf("ExtractBearer() = %q, want %q", tok, "abc")
	}
}

func BenchmarkAuthenticate(b *testing.B) {
	repo := newMockRepo()
	repo.addUser("usr-1", true)
	plaintext := repo.addToken("tok-1", "usr-1", true, nil)
	auth := newTestAuthenticator(repo)
	header := "Bearer " + plaintext
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = auth.Authenticate(ctx, header)
	}
}
