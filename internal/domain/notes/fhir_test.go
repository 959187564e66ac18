package notes

import (
	"fmt"
	"testing"
	"time"
)

func TestConvertToFHIRBundleComposition(t *testing.T) {
	age := 45
	sd := &StructuredData{
		Name: "John Doe",
		Age:  &age,
		Conditions: []CodedItem{
			{Name: "Hypertension", ICDCode: "I10"},
		},
		Diagnoses: []CodedItem{
			{Name: "Type 2 diabetes", ICDCode: "E11"},
		},
		Treatments: []CodedItem{
			{Name: "Appendectomy", ICDCode: "0DTJ0ZZ"},
		},
		Medications: []Medication{
			{Name: "Lisinopril", RxNormCode: "29046"},
		},
	}

	bundle := ConvertToFHIR(sd)

	if bundle.ResourceType != "Bundle" || bundle.Type != "collection" {
		t.Fatalf("wrong bundle header: %s/%s", bundle.ResourceType, bundle.Type)
	}
	// Patient + 2 Condition + 1 Procedure + 1 MedicationStatement
	if len(bundle.Entry) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(bundle.Entry))
	}

	patient, ok := bundle.Entry[0].Resource.(*Patient)
	if !ok {
		t.Fatalf("first entry must be Patient, got %T", bundle.Entry[0].Resource)
	}
	if patient.Name[0].Text != "John Doe" {
		t.Fatalf("wrong patient name: %q", patient.Name[0].Text)
	}
	wantBirth := fmt.Sprintf("%04d-01-01", time.Now().Year()-age)
	if patient.BirthDate != wantBirth {
		t.Fatalf("wrong birth date: %q, want %q", patient.BirthDate, wantBirth)
	}

	patientRef := "Patient/" + patient.ID

	cond, ok := bundle.Entry[1].Resource.(*Condition)
	if !ok {
		t.Fatalf("second entry must be Condition, got %T", bundle.Entry[1].Resource)
	}
	if cond.Code.Coding[0].System != systemICD10 || cond.Code.Coding[0].Code != "I10" {
		t.Fatalf("wrong condition coding: %+v", cond.Code.Coding[0])
	}
	if cond.Subject.Reference != patientRef {
		t.Fatalf("condition must reference the patient, got %q", cond.Subject.Reference)
	}
	if cond.ClinicalStatus.Coding[0].Code != "active" || cond.VerificationStatus.Coding[0].Code != "confirmed" {
		t.Fatal("condition must be active and confirmed")
	}

	// 诊断与病情都映射为 Condition
	diag, ok := bundle.Entry[2].Resource.(*Condition)
	if !ok || diag.Code.Coding[0].Code != "E11" {
		t.Fatalf("diagnosis must map to Condition E11, got %T", bundle.Entry[2].Resource)
	}

	proc, ok := bundle.Entry[3].Resource.(*Procedure)
	if !ok {
		t.Fatalf("fourth entry must be Procedure, got %T", bundle.Entry[3].Resource)
	}
	if proc.Status != "completed" || proc.Code.Coding[0].System != systemICD10Procedures {
		t.Fatalf("wrong procedure: %+v", proc)
	}

	med, ok := bundle.Entry[4].Resource.(*MedicationStatement)
	if !ok {
		t.Fatalf("fifth entry must be MedicationStatement, got %T", bundle.Entry[4].Resource)
	}
	if med.Status != "recorded" {
		t.Fatalf("wrong medication status: %q", med.Status)
	}
	if med.Medication.Concept.Coding[0].System != systemRxNorm || med.Medication.Concept.Coding[0].Code != "29046" {
		t.Fatalf("wrong medication coding: %+v", med.Medication.Concept.Coding[0])
	}
	if med.Subject.Reference != patientRef {
		t.Fatalf("medication must reference the patient, got %q", med.Subject.Reference)
	}
}

func TestConvertToFHIRUnknownAge(t *testing.T) {
	bundle := ConvertToFHIR(&StructuredData{Name: "Jane"})

	if len(bundle.Entry) != 1 {
		t.Fatalf("expected only the Patient entry, got %d", len(bundle.Entry))
	}
	patient := bundle.Entry[0].Resource.(*Patient)
	if patient.BirthDate != "" {
		t.Fatalf("unknown age must leave birthDate empty, got %q", patient.BirthDate)
	}
	if patient.ID == "" {
		t.Fatal("patient must get a generated id")
	}
}

func TestConvertToFHIRFreshIDsPerCall(t *testing.T) {
	sd := &StructuredData{Name: "Jane"}
	b1 := ConvertToFHIR(sd)
	b2 := ConvertToFHIR(sd)

	p1 := b1.Entry[0].Resource.(*Patient)
	p2 := b2.Entry[0].Resource.(*Patient)
	if p1.ID == p2.ID {
		t.Fatal("each conversion must generate fresh resource ids")
	}
}
