package etl

import (
	"context"
	"fmt"
)

// FactColumns is the column order of fact_admissions rows.
var FactColumns = []string{
	"patient_id", "disease_id", "time_id", "doctor_id", "hospital_id", "insurance_id",
	"billing_amount", "room_number", "admission_type", "medication", "test_results",
}

// KeyMap maps a dimension's natural key to its surrogate key.
type KeyMap map[string]int64

// lookup returns the surrogate key for natural, or nil so the foreign key
// is written as NULL.
func (m KeyMap) lookup(natural string) any {
	if id, ok := m[natural]; ok {
		return id
	}
	return nil
}

// keySource describes the (key, natural key) projection read back for one
// dimension and how an admission is matched against it.
type keySource struct {
	table   string
	key     string
	natural string
	value   func(*Admission) string
}

var factKeySources = []keySource{
	{TableDisease, "disease_id", "medical_condition", func(a *Admission) string { return a.MedicalCondition }},
	{TableTime, "time_id", "admission_date", func(a *Admission) string { return a.DateKey() }},
	{TableDoctor, "doctor_id", "doctor_name", func(a *Admission) string { return a.Doctor }},
	{TableHospital, "hospital_id", "hospital_name", func(a *Admission) string { return a.Hospital }},
	{TableInsurance, "insurance_id", "insurance_provider", func(a *Admission) string { return a.InsuranceProvider }},
}

// KeyReader reads a dimension's surrogate keys back from the warehouse.
type KeyReader interface {
	KeyMap(ctx context.Context, table, keyColumn, naturalColumn string) (KeyMap, error)
}

// FactAssembler joins admissions against the dimension key maps.
type FactAssembler struct {
	Keys KeyReader
}

// Assemble reads the five sequence-keyed dimensions back and returns one fact
// row per admission. Unmatched natural keys become NULL foreign keys.
func (f *FactAssembler) Assemble(ctx context.Context, admissions []Admission) ([][]any, error) {
	maps := make([]KeyMap, len(factKeySources))
	for i, src := range factKeySources {
		m, err := f.Keys.KeyMap(ctx, src.table, src.key, src.natural)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s keys: %w", src.table, err)
		}
		maps[i] = m
	}

	rows := make([][]any, 0, len(admissions))
	for i := range admissions {
		a := &admissions[i]
		row := make([]any, 0, len(FactColumns))
		row = append(row, a.PatientID)
		for j, src := range factKeySources {
			row = append(row, maps[j].lookup(src.value(a)))
		}
		row = append(row, nullable(a.BillingAmount), nullable(a.RoomNumber), a.AdmissionType, a.Medication, a.TestResults)
		rows = append(rows, row)
	}
	return rows, nil
}
