package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/classledger/backend/core"
	"github.com/classledger/backend/core/attendance"
	"github.com/classledger/backend/core/roster"
	"github.com/classledger/backend/core/workload"
	inmemdb "github.com/classledger/backend/storage/database/inmem"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type capturingMailService struct {
	sent []*core.EmailMessage
}

func (svc *capturingMailService) SendMessages(messages ...*core.EmailMessage) {
	svc.sent = append(svc.sent, messages...)
}

type testApp struct {
	server Server
	db     *inmemdb.DB
	conf   *core.Config
	roster *roster.Service
	mail   *capturingMailService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	conf := &core.Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "ClassLedger",
		SecretKey:        "secret",
		Timezone:         "UTC",
		AdminEmail:       "admin@school.edu",
		AttendanceTarget: 75,
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}

	db := inmemdb.Open()
	db.AddStudent(roster.Student{ID: "HT001", Name: "Asha", OriginalSection: "CSE-A", MergedSection: "CSE-AB"})
	db.AddStudent(roster.Student{ID: "HT002", Name: "Bharat", OriginalSection: "CSE-B", MergedSection: "CSE-AB"})
	db.AddStudent(roster.Student{ID: "HT003", Name: "Chitra", OriginalSection: "CSE-C", MergedSection: "CSE-C"})
	db.MapSubjects("CSE-AB", "Math", "Physics")

	rosterRepo := inmemdb.NewRosterRepository(db)
	attRepo := inmemdb.NewAttendanceRepository(db)

	mailSvc := &capturingMailService{}
	logger := nopLogger{}

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)

	app := &testApp{
		db:     db,
		conf:   conf,
		roster: roster.NewService(rosterRepo),
		mail:   mailSvc,
	}
	app.server = NewServer(ServerDeps{
		Conf:          conf,
		Logger:        logger,
		RosterSvc:     app.roster,
		AttendanceSvc: attendance.NewService(attRepo, rosterRepo, mailSvc, logger, conf),
		WorkloadSvc:   workload.NewService(attRepo, rosterRepo, logger),
		Validate:      validate,
		Translator:    translator,
	})
	return app
}

func (app *testApp) createFaculty(t *testing.T, name, uname, pwd string, isAdmin bool) roster.Faculty {
	t.Helper()
	fac, err := app.roster.CreateFaculty(context.Background(), roster.NewFaculty{
		Name:     name,
		Username: uname,
		Password: pwd,
		IsAdmin:  isAdmin,
	})
	if err != nil {
		t.Fatalf("createFaculty() failed: %v", err)
	}
	return fac
}

func (app *testApp) getToken(t *testing.T, fac roster.Faculty) string {
	t.Helper()
	token, err := GenerateToken(app.conf, GetFacultyClaims(app.conf, fac))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (app *testApp) request(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func Test_login(t *testing.T) {
	app := newTestApp(t)
	app.createFaculty(t, "Dr. Smith", "smith", "s3cret!", false)

	t.Run("valid credentials", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/v1/users/login", "",
			marchallObj(t, LoginRequest{Username: "Smith", Password: "s3cret!"}))
		assert.Equal(t, http.StatusOK, rec.Code)

		var res LoginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.NotEmpty(t, res.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/v1/users/login", "",
			marchallObj(t, LoginRequest{Username: "smith", Password: "nope"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown username", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/v1/users/login", "",
			marchallObj(t, LoginRequest{Username: "ghost", Password: "s3cret!"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/v1/users/login", "", marchallObj(t, LoginRequest{}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_markAttendance(t *testing.T) {
	app := newTestApp(t)
	smith := app.createFaculty(t, "Dr. Smith", "smith", "s3cret!", false)
	jones := app.createFaculty(t, "Prof. Jones", "jones", "s3cret!", false)

	body := marchallObj(t, attendance.MarkRequest{
		Section: "CSE-AB",
		Period:  attendance.P1,
		Subject: "Math",
		Note:    "Linear equations",
		Entries: []attendance.MarkEntry{
			{StudentID: "HT001", Status: attendance.Present},
			{StudentID: "HT002", Status: attendance.Absent},
		},
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/v1/attendance", "", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("first submission succeeds", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/v1/attendance", app.getToken(t, smith), body)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var res attendance.MarkResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.Equal(t, 2, res.Marked)
		assert.Empty(t, res.Rejected)
	})

	t.Run("same-day re-marking conflicts", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/v1/attendance", app.getToken(t, jones), body)
		assert.Equal(t, http.StatusConflict, rec.Code)

		var res conflictResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.Equal(t, "CONFLICT_ALREADY_MARKED", res.Code)
		assert.Equal(t, "Dr. Smith", res.BlockedBy)
		assert.Equal(t, "CSE-AB", res.Section)
	})

	t.Run("unknown students are rejected individually", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/v1/attendance", app.getToken(t, smith), marchallObj(t, attendance.MarkRequest{
			Section: "CSE-C",
			Period:  attendance.P1,
			Subject: "Math",
			Note:    "Linear equations",
			Entries: []attendance.MarkEntry{
				{StudentID: "HT003", Status: attendance.Present},
				{StudentID: "HT999", Status: attendance.Present},
			},
		}))
		assert.Equal(t, http.StatusCreated, rec.Code)

		var res attendance.MarkResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.Equal(t, 1, res.Marked)
		if assert.Len(t, res.Rejected, 1) {
			assert.Equal(t, "HT999", res.Rejected[0].StudentID)
			assert.Equal(t, attendance.ReasonStudentNotFound, res.Rejected[0].Code)
		}
	})

	t.Run("empty lesson note rejects the submission", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/v1/attendance", app.getToken(t, smith), marchallObj(t, attendance.MarkRequest{
			Section: "CSE-AB",
			Period:  attendance.P2,
			Subject: "Math",
			Entries: []attendance.MarkEntry{{StudentID: "HT001", Status: attendance.Present}},
		}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "note")
	})
}

func Test_sessionState(t *testing.T) {
	app := newTestApp(t)
	smith := app.createFaculty(t, "Dr. Smith", "smith", "s3cret!", false)
	token := app.getToken(t, smith)

	today := time.Now().UTC().Format(attendance.DateLayout)
	app.db.SeedLog("HT001", attendance.P1, fmt.Sprintf("%s_9:30am_P_Dr. Smith_Math_Notes", today))

	rec := app.request(http.MethodGet, "/v1/attendance/session-state?section=CSE-AB&period=P1", token)
	assert.Equal(t, http.StatusOK, rec.Code)

	var state attendance.MarkingState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("unmarshalling response failed: %v", err)
	}
	assert.True(t, state.Blocked)
	assert.Equal(t, "Dr. Smith", state.Faculty)

	rec = app.request(http.MethodGet, "/v1/attendance/session-state?section=CSE-AB&period=P2", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("unmarshalling response failed: %v", err)
	}
	assert.False(t, state.Blocked)

	rec = app.request(http.MethodGet, "/v1/attendance/session-state?section=CSE-AB&period=P9", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_statistics(t *testing.T) {
	app := newTestApp(t)
	smith := app.createFaculty(t, "Dr. Smith", "smith", "s3cret!", false)
	token := app.getToken(t, smith)

	app.db.SeedLog("HT001", attendance.P1,
		"15/01/2024_9:30am_P_Dr. Smith_Math_Notes\n16/01/2024_9:30am_A_Dr. Smith_Math_Notes")

	rec := app.request(http.MethodGet, "/v1/attendance/statistics?section=CSE-A", token)
	assert.Equal(t, http.StatusOK, rec.Code)

	var stats []attendance.StudentStat
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshalling response failed: %v", err)
	}
	if assert.Len(t, stats, 1) {
		assert.Equal(t, "HT001", stats[0].StudentID)
		assert.Equal(t, 50.0, stats[0].Percentage)
	}

	t.Run("date filter", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/attendance/statistics?section=CSE-A&from=16/01/2024", token)
		assert.Equal(t, http.StatusOK, rec.Code)
		if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		if assert.Len(t, stats, 1) {
			assert.Equal(t, 0.0, stats[0].Percentage)
		}
	})

	t.Run("bad date format", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/attendance/statistics?section=CSE-A&from=2024-01-16", token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing section", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/attendance/statistics", token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_workload(t *testing.T) {
	app := newTestApp(t)
	smith := app.createFaculty(t, "Dr. Smith", "smith", "s3cret!", false)
	admin := app.createFaculty(t, "The Dean", "dean", "s3cret!", true)

	app.db.SeedLog("HT001", attendance.P1, "15/01/2024_9:30am_P_Dr. Smith_Math_Notes")
	app.db.SeedLog("HT003", attendance.P1, "15/01/2024_9:30am_P_Dr. Smith_Math_Notes")

	t.Run("own report", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/workload", app.getToken(t, smith))
		assert.Equal(t, http.StatusOK, rec.Code)

		var report workload.Report
		if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.Equal(t, "Dr. Smith", report.FacultyName)
		assert.Equal(t, 1.0, report.TotalLoad) // joint session split over 2 sections
		if assert.Len(t, report.Sessions, 2) {
			assert.Equal(t, 0.5, report.Sessions[0].Load)
		}
	})

	t.Run("another faculty's report needs admin", func(t *testing.T) {
		path := "/v1/workload?faculty_id=" + smith.ID

		rec := app.request(http.MethodGet, path, app.getToken(t, app.createFaculty(t, "P. Nosy", "nosy", "s3cret!", false)))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = app.request(http.MethodGet, path, app.getToken(t, admin))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("all reports are admin only", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/workload/all", app.getToken(t, smith))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = app.request(http.MethodGet, "/v1/workload/all", app.getToken(t, admin))
		assert.Equal(t, http.StatusOK, rec.Code)

		var reports []workload.Report
		if err := json.Unmarshal(rec.Body.Bytes(), &reports); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.Len(t, reports, 3)
	})
}

func Test_coverage(t *testing.T) {
	app := newTestApp(t)
	admin := app.createFaculty(t, "The Dean", "dean", "s3cret!", true)
	smith := app.createFaculty(t, "Dr. Smith", "smith", "s3cret!", false)

	app.db.SeedLog("HT001", attendance.P1, "15/01/2024_9:30am_P_Dr. Smith_Math_Notes")

	t.Run("admin only", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/attendance/coverage?date=15/01/2024", app.getToken(t, smith))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("gap report", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/attendance/coverage?date=15/01/2024", app.getToken(t, admin))
		assert.Equal(t, http.StatusOK, rec.Code)

		var gaps []attendance.CoverageGap
		if err := json.Unmarshal(rec.Body.Bytes(), &gaps); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		if assert.Len(t, gaps, 6) {
			assert.Equal(t, attendance.P1, gaps[0].Period)
			assert.Equal(t, []string{"CSE-C"}, gaps[0].MissingSections)
		}
	})

	t.Run("notify emails the admin", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/v1/attendance/coverage/notify?date=15/01/2024", app.getToken(t, admin))
		assert.Equal(t, http.StatusOK, rec.Code)

		if assert.Len(t, app.mail.sent, 1) {
			assert.Equal(t, "admin@school.edu", app.mail.sent[0].To[0].Address)
			assert.Contains(t, app.mail.sent[0].Subject, "15/01/2024")
		}
	})
}

func Test_sections(t *testing.T) {
	app := newTestApp(t)
	smith := app.createFaculty(t, "Dr. Smith", "smith", "s3cret!", false)
	token := app.getToken(t, smith)

	t.Run("list", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/sections", token)
		assert.Equal(t, http.StatusOK, rec.Code)

		var sections []roster.Section
		if err := json.Unmarshal(rec.Body.Bytes(), &sections); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		if assert.Len(t, sections, 2) {
			assert.Equal(t, "CSE-AB", sections[0].Merged)
			assert.Equal(t, []string{"CSE-A", "CSE-B"}, sections[0].Original)
		}
	})

	t.Run("students", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/sections/CSE-AB/students", token)
		assert.Equal(t, http.StatusOK, rec.Code)

		var students []roster.Student
		if err := json.Unmarshal(rec.Body.Bytes(), &students); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.Len(t, students, 2)
	})

	t.Run("subjects", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/sections/CSE-AB/subjects", token)
		assert.Equal(t, http.StatusOK, rec.Code)

		var subjects []string
		if err := json.Unmarshal(rec.Body.Bytes(), &subjects); err != nil {
			t.Fatalf("unmarshalling response failed: %v", err)
		}
		assert.Equal(t, []string{"Math", "Physics"}, subjects)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/sections", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func Test_previousPattern(t *testing.T) {
	app := newTestApp(t)
	smith := app.createFaculty(t, "Dr. Smith", "smith", "s3cret!", false)
	token := app.getToken(t, smith)

	today := time.Now().UTC().Format(attendance.DateLayout)
	app.db.SeedLog("HT001", attendance.P1, fmt.Sprintf("%s_9:30am_P_Dr. Smith_Math_Notes", today))
	app.db.SeedLog("HT002", attendance.P1, fmt.Sprintf("%s_9:30am_A_Dr. Smith_Math_Notes", today))

	rec := app.request(http.MethodGet, "/v1/attendance/previous-pattern?section=CSE-AB&period=P2", token)
	assert.Equal(t, http.StatusOK, rec.Code)

	var pattern map[string]attendance.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &pattern); err != nil {
		t.Fatalf("unmarshalling response failed: %v", err)
	}
	assert.Equal(t, map[string]attendance.Status{
		"HT001": attendance.Present,
		"HT002": attendance.Absent,
	}, pattern)
}
