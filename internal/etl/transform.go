package etl

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
)

// Source column names, matched after trimming surrounding whitespace.
const (
	ColName              = "Name"
	ColAge               = "Age"
	ColGender            = "Gender"
	ColBloodType         = "Blood Type"
	ColMedicalCondition  = "Medical Condition"
	ColAdmissionDate     = "Date of Admission"
	ColDischargeDate     = "Discharge Date"
	ColDoctor            = "Doctor"
	ColHospital          = "Hospital"
	ColInsuranceProvider = "Insurance Provider"
	ColBillingAmount     = "Billing Amount"
	ColRoomNumber        = "Room Number"
	ColAdmissionType     = "Admission Type"
	ColMedication        = "Medication"
	ColTestResults       = "Test Results"
)

// RequiredColumns lists every column the source file must carry.
var RequiredColumns = []string{
	ColName, ColAge, ColGender, ColBloodType, ColMedicalCondition,
	ColAdmissionDate, ColDischargeDate, ColDoctor, ColHospital,
	ColInsuranceProvider, ColBillingAmount, ColRoomNumber,
	ColAdmissionType, ColMedication, ColTestResults,
}

// DefaultDateLayouts are tried in order when parsing admission and discharge dates.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// DateKeyLayout is the layout natural date keys are normalized to.
const DateKeyLayout = "2006-01-02"

// Admission is one typed source record. Blank numeric cells decode as NULL.
type Admission struct {
	Row       int   `csv:"-"`
	PatientID int64 `csv:"-"`

	Name              string          `csv:"Name"`
	Age               sql.NullInt64   `csv:"Age"`
	Gender            string          `csv:"Gender"`
	BloodType         string          `csv:"Blood Type"`
	MedicalCondition  string          `csv:"Medical Condition"`
	AdmissionDate     time.Time       `csv:"Date of Admission"`
	DischargeDate     time.Time       `csv:"Discharge Date"`
	Doctor            string          `csv:"Doctor"`
	Hospital          string          `csv:"Hospital"`
	InsuranceProvider string          `csv:"Insurance Provider"`
	BillingAmount     sql.NullFloat64 `csv:"Billing Amount"`
	RoomNumber        sql.NullInt64   `csv:"Room Number"`
	AdmissionType     string          `csv:"Admission Type"`
	Medication        string          `csv:"Medication"`
	TestResults       string          `csv:"Test Results"`
}

// DateKey returns the admission date in the form the time dimension is keyed on.
func (a *Admission) DateKey() string {
	return a.AdmissionDate.Format(DateKeyLayout)
}

// Dataset is the transformed source.
type Dataset struct {
	Admissions []Admission
	Collisions []Collision
}

// Transformer turns a raw frame into typed admissions.
type Transformer struct {
	DateLayouts []string
}

// Transform validates the header, types every row and derives patient ids.
// It performs no I/O.
func (t *Transformer) Transform(frame *Frame) (*Dataset, error) {
	ds := &Dataset{}
	if len(frame.Names()) == 0 {
		return ds, nil
	}

	idx, err := columnIndex(frame.Names())
	if err != nil {
		return nil, err
	}

	layouts := t.DateLayouts
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}

	rows := frame.Rows()
	dec, err := csvutil.NewDecoder(&recordReader{rows: rows}, decoderHeader(frame.Names())...)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare source decoder: %w", err)
	}
	dec.Register(func(data []byte, d *time.Time) error {
		v, ok := ParseDate(string(data), layouts)
		if !ok {
			return ErrInvalidValue
		}
		*d = v
		return nil
	})
	dec.Register(unmarshalNullInt)
	dec.Register(unmarshalNullFloat)

	keys := NewPatientKeys()
	ds.Admissions = make([]Admission, 0, len(rows))

	for i := range rows {
		a := Admission{Row: i + 1}
		if err := dec.Decode(&a); err != nil {
			return nil, decodeError(a.Row, rows[i], idx, err)
		}

		a.PatientID = keys.Observe(a.Name)
		ds.Admissions = append(ds.Admissions, a)
	}

	ds.Collisions = keys.Collisions()
	return ds, nil
}

// CheckHeader reports every required column missing from a source header.
func CheckHeader(names []string) error {
	_, err := columnIndex(names)
	return err
}

// columnIndex maps trimmed header names to positions and reports every
// missing required column at once.
func columnIndex(names []string) (map[string]int, error) {
	idx := make(map[string]int, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		if _, dup := idx[n]; !dup {
			idx[n] = i
		}
	}

	var errs []error
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			errs = append(errs, &SourceError{Column: col, Err: ErrMissingColumn})
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return idx, nil
}

// recordReader feeds frame rows to the decoder.
type recordReader struct {
	rows [][]string
	next int
}

func (r *recordReader) Read() ([]string, error) {
	if r.next >= len(r.rows) {
		return nil, io.EOF
	}
	rec := r.rows[r.next]
	r.next++
	return rec, nil
}

// decoderHeader trims header names. Repeated names after the first are
// renamed so only the first occurrence is decoded.
func decoderHeader(names []string) []string {
	header := make([]string, len(names))
	seen := make(map[string]struct{}, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		if _, dup := seen[n]; dup {
			n = fmt.Sprintf("%s#%d", n, i)
		}
		seen[n] = struct{}{}
		header[i] = n
	}
	return header
}

// decodeError turns a decoder failure into a SourceError for row.
func decodeError(row int, rec []string, idx map[string]int, err error) error {
	srcErr := &SourceError{Row: row, Err: err}

	var de *csvutil.DecodeError
	if errors.As(err, &de) {
		srcErr.Column = de.Field
		srcErr.Err = de.Err
		if i, ok := idx[de.Field]; ok && i < len(rec) {
			srcErr.Value = rec[i]
		}
	}
	if !errors.Is(srcErr.Err, ErrInvalidValue) {
		srcErr.Err = fmt.Errorf("%w: %w", ErrInvalidValue, srcErr.Err)
	}
	return srcErr
}

func unmarshalNullInt(data []byte, n *sql.NullInt64) error {
	s := strings.TrimSpace(string(data))
	if s == "" {
		*n = sql.NullInt64{}
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Spreadsheet exports write whole numbers as 45.0
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) {
			return ErrInvalidValue
		}
		v = int64(f)
	}
	*n = sql.NullInt64{Int64: v, Valid: true}
	return nil
}

func unmarshalNullFloat(data []byte, n *sql.NullFloat64) error {
	s := strings.TrimSpace(string(data))
	if s == "" {
		*n = sql.NullFloat64{}
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ErrInvalidValue
	}
	*n = sql.NullFloat64{Float64: f, Valid: true}
	return nil
}

// nullable returns the value of a NULL-able cell, or nil.
func nullable(v driver.Valuer) any {
	val, _ := v.Value()
	return val
}

// ParseDate parses s with the first matching layout and drops the time of day.
func ParseDate(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
