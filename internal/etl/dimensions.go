package etl

import "time"

// Warehouse tables.
const (
	TablePatient   = "dim_patient"
	TableDisease   = "dim_disease"
	TableTime      = "dim_time"
	TableDoctor    = "dim_doctor"
	TableHospital  = "dim_hospital"
	TableInsurance = "dim_insurance"
	TableFact      = "fact_admissions"
)

// ClearOrder lists the tables in the order they are emptied, dependents first.
var ClearOrder = []string{
	TableFact,
	TablePatient,
	TableDisease,
	TableTime,
	TableDoctor,
	TableHospital,
	TableInsurance,
}

// DimensionBuilder shapes the admissions into the rows of one dimension table.
// Builders assume the target table is empty.
type DimensionBuilder interface {
	Name() string
	Table() string
	Columns() []string
	Rows(admissions []Admission) [][]any
}

// DefaultDimensions returns the six builders of the admissions star schema.
func DefaultDimensions() []DimensionBuilder {
	return []DimensionBuilder{
		patientDimension{},
		valueDimension{name: "disease", table: TableDisease, column: "medical_condition",
			value: func(a *Admission) string { return a.MedicalCondition }},
		timeDimension{},
		valueDimension{name: "doctor", table: TableDoctor, column: "doctor_name",
			value: func(a *Admission) string { return a.Doctor }},
		valueDimension{name: "hospital", table: TableHospital, column: "hospital_name",
			value: func(a *Admission) string { return a.Hospital }},
		valueDimension{name: "insurance", table: TableInsurance, column: "insurance_provider",
			value: func(a *Admission) string { return a.InsuranceProvider }},
	}
}

// patientDimension keys patients by derived id; the first record wins.
type patientDimension struct{}

func (patientDimension) Name() string  { return "patient" }
func (patientDimension) Table() string { return TablePatient }
func (patientDimension) Columns() []string {
	return []string{"patient_id", "patient_name", "age", "gender", "blood_type"}
}

func (patientDimension) Rows(admissions []Admission) [][]any {
	seen := make(map[int64]struct{})
	var rows [][]any
	for i := range admissions {
		a := &admissions[i]
		if _, ok := seen[a.PatientID]; ok {
			continue
		}
		seen[a.PatientID] = struct{}{}
		rows = append(rows, []any{a.PatientID, a.Name, nullable(a.Age), a.Gender, a.BloodType})
	}
	return rows
}

// timeDimension has one row per distinct admission date. The discharge date
// is taken from the first record with that admission date.
type timeDimension struct{}

func (timeDimension) Name() string  { return "time" }
func (timeDimension) Table() string { return TableTime }
func (timeDimension) Columns() []string {
	return []string{"admission_date", "discharge_date", "month", "year", "quarter", "day_of_week"}
}

func (timeDimension) Rows(admissions []Admission) [][]any {
	seen := make(map[string]struct{})
	var rows [][]any
	for i := range admissions {
		a := &admissions[i]
		key := a.DateKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		d := a.AdmissionDate
		rows = append(rows, []any{
			d,
			a.DischargeDate,
			int(d.Month()),
			d.Year(),
			Quarter(d.Month()),
			d.Weekday().String(),
		})
	}
	return rows
}

// valueDimension holds the distinct values of one text column in first-seen order.
type valueDimension struct {
	name   string
	table  string
	column string
	value  func(*Admission) string
}

func (d valueDimension) Name() string      { return d.name }
func (d valueDimension) Table() string     { return d.table }
func (d valueDimension) Columns() []string { return []string{d.column} }

func (d valueDimension) Rows(admissions []Admission) [][]any {
	seen := make(map[string]struct{})
	var rows [][]any
	for i := range admissions {
		v := d.value(&admissions[i])
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		rows = append(rows, []any{v})
	}
	return rows
}

// Quarter returns the calendar quarter (1-4) of m.
func Quarter(m time.Month) int {
	return (int(m)-1)/3 + 1
}
