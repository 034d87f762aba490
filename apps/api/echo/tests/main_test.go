package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/exam"
	"github.com/trezcool/shule/core/finance"
	"github.com/trezcool/shule/core/identity"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/school"
	emailsvc "github.com/trezcool/shule/services/email"
	ssodummy "github.com/trezcool/shule/services/sso/dummy"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
)

var (
	errMissingToken = httpErr{Error: "authentication required"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNoProfile    = httpErr{Error: "no profile matches this identity"}
	errProviderDown = httpErr{Error: "identity provider unavailable"}
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

type schoolRepo interface {
	school.Repository
	SeedClass(cls school.Class) school.Class
	SeedLesson(la school.LessonAssignment) school.LessonAssignment
}

type testApp struct {
	conf      *core.Config
	provider  *ssodummy.Provider
	repo      schoolRepo
	schoolSvc *school.Service
	app       echoapi.Server

	students map[string]school.Student
	classes  map[string]school.Class
}

func newTestApp(t *testing.T, confMutators ...func(*core.Config)) *testApp {
	t.Helper()

	conf := &core.Config{
		AppName:                   "Shule",
		TestMode:                  true,
		SecretKey:                 "test-secret",
		JWTExpirationDelta:        time.Hour,
		JWTRefreshExpirationDelta: 48 * time.Hour,
		Provider:                  core.ProviderConfig{Timeout: time.Second},
	}
	for _, mutate := range confMutators {
		mutate(conf)
	}

	db := dummydb.Open()
	repo := dummydb.NewSchoolRepository(db)
	schoolSvc := school.NewService(repo)
	provider := ssodummy.NewProvider()
	logger := nopLogger{}

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	identitySvc := identity.NewService(conf, provider, schoolSvc, logger)
	notifSvc := notification.NewService(dummydb.NewNotificationRepository(db), schoolSvc, mailSvc, logger)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	app := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:           conf,
			Logger:         logger,
			IdentitySvc:    identitySvc,
			SchoolSvc:      schoolSvc,
			AttendanceSvc:  attendance.NewService(dummydb.NewAttendanceRepository(db)),
			FinanceSvc:     finance.NewService(dummydb.NewFinanceRepository(db)),
			ExamSvc:        exam.NewService(dummydb.NewExamRepository(db)),
			NotifSvc:       notifSvc,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		},
	)

	ta := &testApp{
		conf:      conf,
		provider:  provider,
		repo:      repo,
		schoolSvc: schoolSvc,
		app:       app,
		students:  make(map[string]school.Student),
		classes:   make(map[string]school.Class),
	}
	ta.seed(t)
	return ta
}

// seed provisions the canonical cast: teacher T1 over classes 9A
// (supervised) and 10A (math lessons) with students S1..S3 enrolled,
// S4 in 11B, parent P1 of S1 and S2, admin A1 and accountant ACC1.
func (ta *testApp) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	mustProvisionStaff := func(role identity.Role, ns school.NewStaff) {
		if err := ta.schoolSvc.ProvisionStaff(ctx, role, ns); err != nil {
			t.Fatalf("ProvisionStaff(%s): %v", ns.ID, err)
		}
	}
	mustProvisionStaff(identity.RoleTeacher, school.NewStaff{ID: "T1", Name: "Mr Ilunga", Email: "ilunga@test.cd"})
	mustProvisionStaff(identity.RoleTeacher, school.NewStaff{ID: "T2", Name: "Mrs Mbuyi"})
	mustProvisionStaff(identity.RoleParent, school.NewStaff{ID: "P1", Name: "Maman Kalala", Email: "kalala@test.cd"})
	mustProvisionStaff(identity.RoleAdmin, school.NewStaff{ID: "A1", Name: "Head Admin", Email: "admin@test.cd"})
	mustProvisionStaff(identity.RoleAccountant, school.NewStaff{ID: "ACC1", Name: "Bursar"})

	for _, ns := range []school.NewStudent{
		{ID: "S1", StudentNo: "std001", Name: "Junior Kalala", Email: "junior@test.cd", ParentID: "P1"},
		{ID: "S2", StudentNo: "std002", Name: "Grace Kalala", ParentID: "P1"},
		{ID: "S3", StudentNo: "std003", Name: "Patient Mwamba"},
		{ID: "S4", StudentNo: "std004", Name: "Divine Tshala"},
	} {
		std, err := ta.schoolSvc.ProvisionStudent(ctx, ns)
		if err != nil {
			t.Fatalf("ProvisionStudent(%s): %v", ns.ID, err)
		}
		ta.students[std.ID] = std
	}

	for _, cls := range []school.Class{
		{ID: "C9A", Name: "9A", YearID: "Y1", SupervisorID: "T1"},
		{ID: "C10A", Name: "10A", YearID: "Y1", SupervisorID: "T2"},
		{ID: "C11B", Name: "11B", YearID: "Y1", SupervisorID: "T2"},
	} {
		ta.classes[cls.ID] = ta.repo.SeedClass(cls)
	}
	ta.repo.SeedLesson(school.LessonAssignment{ClassID: "C10A", TeacherID: "T1", Subject: "Math"})

	for _, enr := range []school.NewEnrollment{
		{StudentID: "S1", ClassID: "C9A", YearID: "Y1"},
		{StudentID: "S2", ClassID: "C9A", YearID: "Y1"},
		{StudentID: "S3", ClassID: "C10A", YearID: "Y1"},
		{StudentID: "S4", ClassID: "C11B", YearID: "Y1"},
	} {
		if _, err := ta.schoolSvc.Enroll(ctx, enr); err != nil {
			t.Fatalf("Enroll(%s): %v", enr.StudentID, err)
		}
	}
}

// getToken issues a local JWT for a seeded profile id.
func (ta *testApp) getToken(t *testing.T, profileID string, role identity.Role) string {
	t.Helper()
	claims := identity.NewClaims(ta.conf, identity.Profile{ID: profileID}, role)
	token, err := identity.GenerateToken(ta.conf, claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func (ta *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ta.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func marshallList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
