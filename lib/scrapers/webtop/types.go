package webtop

import "encoding/json"

// Profile is the portal's user record returned by the login
// finalization call. Read-only once obtained.
type Profile struct {
	StudentLoginID  int64  `json:"studentLoginId"`
	StudentID       int64  `json:"studentId"`
	ID              string `json:"id"`
	UserID          string `json:"userId"`
	SchoolName      string `json:"schoolName"`
	SchoolID        int64  `json:"schoolId"`
	UserType        int    `json:"userType"`
	IsTeacher       int    `json:"isTeacher"`
	IsWebTopUser    bool   `json:"isWebTopUser"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	FullName        string `json:"fullName"`
	StudentGender   bool   `json:"studentGender"`
	InstitutionCode int64  `json:"institutionCode"`
	ClassCode       string `json:"classCode"`
	ClassNumber     int    `json:"classNumber"`
	UserImageToken  string `json:"userImageToken"`
	Cellphone       string `json:"cellphone"`
	LastLoginDate   string `json:"lastLoginDate"`
}

// Grade is one evaluation entry as returned by the portal,
// partitioned into periods by PeriodID.
type Grade struct {
	EvaluationID     int             `json:"evaluationID"`
	Title            string          `json:"title"`
	Date             string          `json:"date"`
	Type             string          `json:"type"`
	TypeCode         int             `json:"typeCode"`
	TeacherFirstName string          `json:"teacherFirstName"`
	TeacherLastName  string          `json:"teacherLastName"`
	Grade            *float64        `json:"grade"`
	GradeTranslation string          `json:"gradeTranslation"`
	Subject          string          `json:"subject"`
	Level            string          `json:"level"`
	Weight           float64         `json:"weight"`
	Remark           *string         `json:"remark"`
	Assessment       *string         `json:"assessment"`
	Components       json.RawMessage `json:"components"`
	IsDeleted        int             `json:"isDeleted"`
	PeriodID         int             `json:"period_id"`
}

type loginMoeRequest struct {
	RememberMe     string `json:"rememberMe"`
	Key            string `json:"key"`
	DeviceDataJson string `json:"deviceDataJson"`
}

type loginMoeResponse struct {
	Status bool    `json:"status"`
	Data   Profile `json:"data"`
}

type pupilGradesRequest struct {
	StudentID string `json:"studentID"`
	ClassCode string `json:"classCode"`
	ModuleID  int    `json:"moduleID"`
}

type pupilGradesResponse struct {
	Status bool    `json:"status"`
	Data   []Grade `json:"data"`
}

// deviceData mimics the desktop browser description the portal's own
// frontend submits on login.
type deviceData struct {
	IsMobile            bool   `json:"isMobile"`
	IsTablet            bool   `json:"isTablet"`
	IsDesktop           bool   `json:"isDesktop"`
	GetDeviceType       string `json:"getDeviceType"`
	OS                  string `json:"os"`
	OSVersion           string `json:"osVersion"`
	Browser             string `json:"browser"`
	BrowserVersion      string `json:"browserVersion"`
	BrowserMajorVersion int    `json:"browserMajorVersion"`
	Cookies             bool   `json:"cookies"`
	UserAgent           string `json:"userAgent"`
}
