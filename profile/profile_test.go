package profile_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jrsteele09/wbcms-session/gateway"
	"github.com/jrsteele09/wbcms-session/internal/errors"
	"github.com/jrsteele09/wbcms-session/internal/utils"
	"github.com/jrsteele09/wbcms-session/profile"
	"github.com/jrsteele09/wbcms-session/session"
	"github.com/jrsteele09/wbcms-session/session/repofake"
	"github.com/jrsteele09/wbcms-session/users"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	srv     *httptest.Server
	store   *session.Store
	service *profile.Service

	mu      sync.Mutex
	patches []string
	auth    []string
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{}
	mux := http.NewServeMux()
	mux.HandleFunc("/update_profile/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		data, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.patches = append(f.patches, r.URL.Path+" "+string(data))
		f.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write(data)
	})
	mux.HandleFunc("/academic_years/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 3, "title": body["title"], "created": "2026-09-01T00:00:00Z"})
			return
		}
		_, _ = w.Write([]byte(`[{"id":2,"title":"2025/2026","created":"2025-08-01T10:00:00Z"},{"id":"1","title":"2024/2025"}]`))
	})
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)

	store, err := session.NewStore(repofake.NewFakeRecordRepo())
	require.NoError(t, err)
	store.Load(context.Background())
	f.store = store

	g, err := gateway.New(f.srv.URL, store, gateway.WithHTTPClient(f.srv.Client()))
	require.NoError(t, err)
	f.service, err = profile.New(g, store)
	require.NoError(t, err)
	return f
}

func (f *testFixture) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, f.store.Save(context.Background(), session.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		UserID:       "12",
		Email:        "jane@students.mak.ac.ug",
		Role:         users.RoleStudent,
	}))
}

func TestUpdate(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(t)

	s, err := f.service.Update(context.Background(), users.ProfileUpdate{
		RegistrationNumber: utils.Ptr("21/U/1234"),
		StudentNumber:      utils.Ptr("2100701234"),
		ProgrammeID:        utils.Ptr(5),
	})
	require.NoError(t, err)
	require.True(t, s.HasProfile)
	require.Equal(t, "2100701234", utils.Value(s.StudentNumber))
	require.Equal(t, 5, utils.Value(s.ProgrammeID))
	require.Equal(t, "access", s.AccessToken, "profile completion keeps the session")

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.patches, 1)
	require.Equal(t, `/update_profile/12 {"registration_number":"21/U/1234","student_number":"2100701234","programme":5}`, f.patches[0])
	require.Equal(t, []string{"Bearer access"}, f.auth)
}

func TestUpdateRequiresSession(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Update(context.Background(), users.ProfileUpdate{StudentNumber: utils.Ptr("1")})
	require.True(t, errors.Is(err, errors.ErrNotLoggedIn))

	f.signIn(t)
	_, err = f.service.Update(context.Background(), users.ProfileUpdate{})
	require.True(t, errors.Is(err, errors.ErrValidation))
	require.Empty(t, f.patches)
}

func TestAcademicYears(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(t)

	years, err := f.service.AcademicYears(context.Background())
	require.NoError(t, err)
	require.Len(t, years, 2)
	require.Equal(t, "2025/2026", years[0].Title)
	require.Equal(t, "1", string(years[1].ID))

	year, err := f.service.AddAcademicYear(context.Background(), " 2026/2027 ")
	require.NoError(t, err)
	require.Equal(t, "2026/2027", year.Title)
	require.Equal(t, "3", string(year.ID))
}

func TestValidateAcademicYear(t *testing.T) {
	require.NoError(t, profile.ValidateAcademicYear("2026/2027"))

	for _, bad := range []string{"", "2026", "2026-2027", "26/27", "2026/20277", "abcd/efgh"} {
		var fieldErr *errors.FieldError
		require.True(t, errors.As(profile.ValidateAcademicYear(bad), &fieldErr), bad)
		require.Equal(t, profile.AcademicYearFormatMsg, fieldErr.Message)
	}

	var fieldErr *errors.FieldError
	require.True(t, errors.As(profile.ValidateAcademicYear("2026/2028"), &fieldErr))
	require.Equal(t, profile.AcademicYearSpanMsg, fieldErr.Message)
}
