package roster

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/classledger/backend/core"
)

// Student is a read-only roster record. ID is the hall-ticket number.
//
// A student carries two section labels at once: OriginalSection is the
// administrative label used for reporting, MergedSection is the scheduling
// label — several original sections may be taught together as one merged
// section, and attendance is always marked against the merged one.
type Student struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	OriginalSection string `json:"original_section"`
	MergedSection   string `json:"merged_section"`
}

// Section pairs a merged (scheduling) section with the original sections it
// combines.
type Section struct {
	Merged   string   `json:"merged"`
	Original []string `json:"original"`
}

type Faculty struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsAdmin      bool      `json:"is_admin"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (f *Faculty) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	f.PasswordHash = hash
	return nil
}

func (f *Faculty) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(f.PasswordHash, []byte(pwd))
}

// NewFaculty contains information needed to create a new Faculty member.
type NewFaculty struct {
	Name     string `json:"name" validate:"required"`
	Username string `json:"username" validate:"required,min=4,alphanum_"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
	IsAdmin  bool   `json:"is_admin"`
}

func (nf *NewFaculty) Clean() {
	nf.Name = core.CleanString(nf.Name)
	nf.Username = core.CleanString(nf.Username, true /* lower */)
	nf.Email = core.CleanString(nf.Email, true /* lower */)
}

// StudentFilter narrows QueryStudents; zero-value fields are ignored.
type StudentFilter struct {
	OriginalSection string
	MergedSection   string
}

func (f StudentFilter) IsEmpty() bool {
	return f.OriginalSection == "" && f.MergedSection == ""
}

// FacultyFilter fetches a single Faculty by any of its unique handles.
type FacultyFilter struct {
	ID       string
	Username string
	Email    string
}
