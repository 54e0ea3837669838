package validate

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/garnizeh/ats/pkg/models"
)

// MaxResumeSize is the largest resume accepted by either form.
const MaxResumeSize = 10 << 20

var (
	emailRe          = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	publicPhoneRe    = regexp.MustCompile(`^[+]?[0-9\s\-()]{10,}$`)
	recruiterPhoneRe = regexp.MustCompile(`^[+]?[1-9][0-9]{0,15}$`)
	phoneNoise       = regexp.MustCompile(`[\s\-()]`)

	publicExts    = []string{".pdf", ".doc", ".docx", ".txt", ".rtf"}
	recruiterExts = []string{".pdf", ".doc", ".docx", ".txt", ".rtf", ".jpg", ".jpeg", ".png"}
	recruiterMIME = []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"text/plain",
		"text/rtf",
		"application/rtf",
		"image/jpeg",
		"image/png",
	}
)

// Errors is the list of human-readable problems found in a form.
type Errors []string

func (e Errors) Error() string { return strings.Join(e, ". ") }

type publicApplication struct {
	Name       string `validate:"required"`
	Email      string `validate:"required,ats_email"`
	Job        int64  `validate:"gt=0"`
	Resume     string `validate:"required,public_resume"`
	ResumeSize int64  `validate:"max=10485760"`
	Phone      string `validate:"omitempty,public_phone"`
}

type recruiterUpload struct {
	Name       string `validate:"required"`
	Email      string `validate:"required,ats_email"`
	Job        int64  `validate:"gt=0"`
	Resume     string `validate:"required"`
	ResumeSize int64  `validate:"max=10485760"`
	Phone      string `validate:"omitempty,recruiter_phone"`
	data       []byte
}

var publicMessages = map[string]string{
	"Name.required":        "Full name is required",
	"Email.required":       "Email address is required",
	"Email.ats_email":      "Please enter a valid email address",
	"Job.gt":               "Job selection is required",
	"Resume.required":      "Resume is required",
	"Resume.public_resume": "Please upload PDF, DOC, DOCX, TXT, or RTF files only. These formats are ATS-friendly.",
	"ResumeSize.max":       "File size must be less than 10MB",
	"Phone.public_phone":   "Please enter a valid phone number",
}

var recruiterMessages = map[string]string{
	"Name.required":         "Name is required",
	"Email.required":        "Email is required",
	"Email.ats_email":       "Please enter a valid email address",
	"Job.gt":                "Job selection is required",
	"Resume.required":       "Resume file is required",
	"Resume.resume_type":    "Please upload PDF, DOC, DOCX, TXT, RTF, JPG, or PNG files only",
	"ResumeSize.max":        "File size must be less than 10MB",
	"Phone.recruiter_phone": "Please enter a valid phone number",
}

var jobMessages = map[string]string{
	"Title.required":       "Title is required",
	"Description.required": "Description is required",
	"Location.required":    "Location is required",
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(val, "ats_email", func(fl validator.FieldLevel) bool {
		return emailRe.MatchString(fl.Field().String())
	})
	mustRegister(val, "public_phone", func(fl validator.FieldLevel) bool {
		return publicPhoneRe.MatchString(fl.Field().String())
	})
	mustRegister(val, "recruiter_phone", func(fl validator.FieldLevel) bool {
		return recruiterPhoneRe.MatchString(phoneNoise.ReplaceAllString(fl.Field().String(), ""))
	})
	mustRegister(val, "public_resume", func(fl validator.FieldLevel) bool {
		return hasExt(fl.Field().String(), publicExts)
	})
	val.RegisterStructValidation(func(sl validator.StructLevel) {
		u := sl.Current().Interface().(recruiterUpload)
		if u.Resume == "" || hasExt(u.Resume, recruiterExts) {
			return
		}
		detected := mimetype.Detect(u.data)
		for _, m := range recruiterMIME {
			if detected.Is(m) {
				return
			}
		}
		sl.ReportError(u.Resume, "Resume", "Resume", "resume_type", "")
	}, recruiterUpload{})
	return val
}

func mustRegister(val *validator.Validate, tag string, fn validator.Func) {
	if err := val.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s: %v", tag, err))
	}
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// Email reports whether s looks like an email address.
func Email(s string) bool {
	return v.Var(strings.TrimSpace(s), "ats_email") == nil
}

// PublicApplication checks a candidate's application before it is sent.
func PublicApplication(f models.ApplicationForm) error {
	in := publicApplication{
		Name:       strings.TrimSpace(f.Name),
		Email:      strings.TrimSpace(f.Email),
		Job:        f.Job,
		ResumeSize: f.Resume.Size(),
		Phone:      strings.TrimSpace(f.Phone),
	}
	if f.Resume != nil {
		in.Resume = f.Resume.Name
	}
	return collect(v.Struct(in), publicMessages)
}

// RecruiterUpload checks a resume uploaded by a recruiter on behalf of a
// candidate. Images are accepted here, unlike on the public form.
func RecruiterUpload(f models.ApplicationForm) error {
	in := recruiterUpload{
		Name:       strings.TrimSpace(f.Name),
		Email:      strings.TrimSpace(f.Email),
		Job:        f.Job,
		ResumeSize: f.Resume.Size(),
		Phone:      strings.TrimSpace(f.Phone),
	}
	if f.Resume != nil {
		in.Resume = f.Resume.Name
		in.data = f.Resume.Data
	}
	return collect(v.Struct(in), recruiterMessages)
}

// JobForm checks a job posting before create or update.
func JobForm(in models.JobInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	return collect(v.Struct(in), jobMessages)
}

func collect(err error, table map[string]string) error {
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := make(Errors, 0, len(ve))
	for _, fe := range ve {
		msg, ok := table[fe.StructField()+"."+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", fe.Field())
		}
		out = append(out, msg)
	}
	return out
}

var (
	extRe    = regexp.MustCompile(`\.[^/.]+$`)
	sepRe    = regexp.MustCompile(`[_-]`)
	camelRe  = regexp.MustCompile(`([a-z])([A-Z])`)
	digitsRe = regexp.MustCompile(`[0-9]+`)
)

// NameFromFilename guesses a candidate name from a resume file name, e.g.
// "JaneDoe_resume-2024.pdf" gives "Jane Doe resume". It returns "" when the
// guess is too short to be useful.
func NameFromFilename(name string) string {
	n := extRe.ReplaceAllString(filepath.Base(name), "")
	n = sepRe.ReplaceAllString(n, " ")
	n = camelRe.ReplaceAllString(n, "$1 $2")
	n = digitsRe.ReplaceAllString(n, "")
	n = strings.Join(strings.Fields(n), " ")
	if len(n) <= 2 {
		return ""
	}
	return n
}
