package notes

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ── FHIR 资源模型（collection Bundle 所需的最小子集）──────────

// Coding FHIR 编码项
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// CodeableConcept FHIR 可编码概念
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// CodeableReference FHIR 可编码引用
type CodeableReference struct {
	Concept *CodeableConcept `json:"concept,omitempty"`
}

// Reference FHIR 资源引用
type Reference struct {
	Reference string `json:"reference,omitempty"`
}

// HumanName FHIR 人名
type HumanName struct {
	Text string `json:"text,omitempty"`
}

// Patient FHIR 患者资源
type Patient struct {
	ResourceType string      `json:"resourceType"`
	ID           string      `json:"id"`
	Name         []HumanName `json:"name,omitempty"`
	BirthDate    string      `json:"birthDate,omitempty"`
}

// Condition FHIR 病情资源（conditions 与 diagnoses 都映射到这里）
type Condition struct {
	ResourceType       string           `json:"resourceType"`
	ID                 string           `json:"id"`
	Code               *CodeableConcept `json:"code,omitempty"`
	Subject            *Reference       `json:"subject,omitempty"`
	ClinicalStatus     *CodeableConcept `json:"clinicalStatus,omitempty"`
	VerificationStatus *CodeableConcept `json:"verificationStatus,omitempty"`
}

// Procedure FHIR 治疗操作资源
type Procedure struct {
	ResourceType string           `json:"resourceType"`
	ID           string           `json:"id"`
	Status       string           `json:"status"`
	Code         *CodeableConcept `json:"code,omitempty"`
	Subject      *Reference       `json:"subject,omitempty"`
}

// MedicationStatement FHIR 用药记录资源
type MedicationStatement struct {
	ResourceType string             `json:"resourceType"`
	ID           string             `json:"id"`
	Status       string             `json:"status"`
	Medication   *CodeableReference `json:"medication,omitempty"`
	Subject      *Reference         `json:"subject,omitempty"`
}

// BundleEntry Bundle 条目，resource 为上面四种资源之一。
type BundleEntry struct {
	Resource any `json:"resource"`
}

// Bundle FHIR 资源集合
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	Type         string        `json:"type"`
	Entry        []BundleEntry `json:"entry"`
}

// ── 编码系统常量 ─────────────────────────────────────────────

const (
	systemICD10           = "http://hl7.org/fhir/sid/icd-10"
	systemICD10Procedures = "http://hl7.org/fhir/sid/icd-10-procedures"
	systemRxNorm          = "http://www.nlm.nih.gov/research/umls/rxnorm"
	systemCondClinical    = "http://terminology.hl7.org/CodeSystem/condition-clinical"
	systemCondVerStatus   = "http://terminology.hl7.org/CodeSystem/condition-ver-status"
)

// ── 转换 ─────────────────────────────────────────────────────

// ConvertToFHIR 将结构化医疗数据转换为 FHIR collection Bundle。
// 所有资源引用同一个新生成的 Patient；conditions 与 diagnoses 统一
// 映射为 Condition，treatments 映射为 Procedure，medications 映射为
// MedicationStatement。
func ConvertToFHIR(data *StructuredData) *Bundle {
	patientID := uuid.New().String()

	entries := []BundleEntry{
		{Resource: newPatient(data, patientID)},
	}
	for _, item := range data.Conditions {
		entries = append(entries, BundleEntry{Resource: newCondition(item, patientID)})
	}
	for _, item := range data.Diagnoses {
		entries = append(entries, BundleEntry{Resource: newCondition(item, patientID)})
	}
	for _, item := range data.Treatments {
		entries = append(entries, BundleEntry{Resource: newProcedure(item, patientID)})
	}
	for _, med := range data.Medications {
		entries = append(entries, BundleEntry{Resource: newMedicationStatement(med, patientID)})
	}

	return &Bundle{
		ResourceType: "Bundle",
		Type:         "collection",
		Entry:        entries,
	}
}

func newPatient(data *StructuredData, patientID string) *Patient {
	p := &Patient{
		ResourceType: "Patient",
		ID:           patientID,
		Name:         []HumanName{{Text: data.Name}},
	}
	// 只有年龄，按当年推算出生年份，取 1 月 1 日
	if data.Age != nil && *data.Age > 0 {
		p.BirthDate = fmt.Sprintf("%04d-01-01", time.Now().Year()-*data.Age)
	}
	return p
}

func newCondition(item CodedItem, patientID string) *Condition {
	return &Condition{
		ResourceType: "Condition",
		ID:           uuid.New().String(),
		Code: &CodeableConcept{
			Coding: []Coding{{System: systemICD10, Code: item.ICDCode, Display: item.Name}},
			Text:   item.Name,
		},
		Subject: &Reference{Reference: "Patient/" + patientID},
		ClinicalStatus: &CodeableConcept{
			Coding: []Coding{{System: systemCondClinical, Code: "active"}},
		},
		VerificationStatus: &CodeableConcept{
			Coding: []Coding{{System: systemCondVerStatus, Code: "confirmed"}},
		},
	}
}

func newProcedure(item CodedItem, patientID string) *Procedure {
	return &Procedure{
		ResourceType: "Procedure",
		ID:           uuid.New().String(),
		Status:       "completed",
		Code: &CodeableConcept{
			Coding: []Coding{{System: systemICD10Procedures, Code: item.ICDCode, Display: item.Name}},
			Text:   item.Name,
		},
		Subject: &Reference{Reference: "Patient/" + patientID},
	}
}

func newMedicationStatement(med Medication, patientID string) *MedicationStatement {
	return &MedicationStatement{
		ResourceType: "MedicationStatement",
		ID:           uuid.New().String(),
		Status:       "recorded",
		Medication: &CodeableReference{
			Concept: &CodeableConcept{
				Coding: []Coding{{System: systemRxNorm, Code: med.RxNormCode, Display: med.Name}},
				Text:   med.Name,
			},
		},
		Subject: &Reference{Reference: "Patient/" + patientID},
	}
}
