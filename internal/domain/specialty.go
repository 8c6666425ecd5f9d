package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Specialty is a medical specialty. The hundreds digit of the code selects
// its category. The zero value is not a specialty.
type Specialty int

const SpecialtyNone Specialty = 0

// Primary care.
const (
	FamilyMedicine Specialty = 100 + iota
	InternalMedicine
	Pediatrics
	Geriatrics
	GeneralPractice
)

// Surgery.
const (
	GeneralSurgery Specialty = 200 + iota
	CardiothoracicSurgery
	Neurosurgery
	OrthopedicSurgery
	PlasticSurgery
	Urology
	VascularSurgery
	ColorectalSurgery
	Otolaryngology
	TransplantSurgery
	PediatricSurgery
	TraumaSurgery
)

// Internal medicine subspecialties.
const (
	Cardiology Specialty = 300 + iota
	Endocrinology
	Gastroenterology
	Hematology
	InfectiousDisease
	Nephrology
	Oncology
	Pulmonology
	Rheumatology
	AllergyAndImmunology
)

// Diagnostics.
const (
	Pathology Specialty = 400 + iota
	Radiology
	NuclearMedicine
	DiagnosticImaging
)

// Emergency and critical care.
const (
	EmergencyMedicine Specialty = 500 + iota
	CriticalCareMedicine
	Anesthesiology
	PainMedicine
)

// Women's health.
const (
	ObstetricsAndGynecology Specialty = 600 + iota
	ReproductiveEndocrinology
	MaternalFetalMedicine
	GynecologicOncology
	Urogynecology
)

// Neurology and mental health.
const (
	Neurology Specialty = 700 + iota
	Psychiatry
	ChildAndAdolescentPsychiatry
	GeriatricPsychiatry
	Neuropsychiatry
)

// Musculoskeletal and rehabilitation.
const (
	PhysicalMedicineAndRehabilitation Specialty = 800 + iota
	SportsMedicine
	OccupationalMedicine
)

// Skin and eyes.
const (
	Dermatology Specialty = 900 + iota
	Ophthalmology
	Optometry
)

// Public health.
const (
	PreventiveMedicine Specialty = 1000 + iota
	PublicHealth
	OccupationalHealth
	AerospaceMedicine
)

// Laboratory and research.
const (
	MedicalGenetics Specialty = 1100 + iota
	MolecularMedicine
	ClinicalPharmacology
	LaboratoryMedicine
)

// Dental.
const (
	Dentistry Specialty = 1200 + iota
	OralAndMaxillofacialSurgery
	Orthodontics
	Periodontics
	Endodontics
	Prosthodontics
	PediatricDentistry
)

// Other.
const (
	PalliativeCare Specialty = 1300 + iota
	SleepMedicine
	AddictionMedicine
	HospitalMedicine
	ForensicMedicine
	TropicalMedicine
	Immunopathology
	NuclearRadiology
)

var specialtyNames = map[Specialty]string{
	FamilyMedicine:   "FamilyMedicine",
	InternalMedicine: "InternalMedicine",
	Pediatrics:       "Pediatrics",
	Geriatrics:       "Geriatrics",
	GeneralPractice:  "GeneralPractice",

	GeneralSurgery:        "GeneralSurgery",
	CardiothoracicSurgery: "CardiothoracicSurgery",
	Neurosurgery:          "Neurosurgery",
	OrthopedicSurgery:     "OrthopedicSurgery",
	PlasticSurgery:        "PlasticSurgery",
	Urology:               "Urology",
	VascularSurgery:       "VascularSurgery",
	ColorectalSurgery:     "ColorectalSurgery",
	Otolaryngology:        "Otolaryngology",
	TransplantSurgery:     "TransplantSurgery",
	PediatricSurgery:      "PediatricSurgery",
	TraumaSurgery:         "TraumaSurgery",

	Cardiology:           "Cardiology",
	Endocrinology:        "Endocrinology",
	Gastroenterology:     "Gastroenterology",
	Hematology:           "Hematology",
	InfectiousDisease:    "InfectiousDisease",
	Nephrology:           "Nephrology",
	Oncology:             "Oncology",
	Pulmonology:          "Pulmonology",
	Rheumatology:         "Rheumatology",
	AllergyAndImmunology: "AllergyAndImmunology",

	Pathology:         "Pathology",
	Radiology:         "Radiology",
	NuclearMedicine:   "NuclearMedicine",
	DiagnosticImaging: "DiagnosticImaging",

	EmergencyMedicine:    "EmergencyMedicine",
	CriticalCareMedicine: "CriticalCareMedicine",
	Anesthesiology:       "Anesthesiology",
	PainMedicine:         "PainMedicine",

	ObstetricsAndGynecology:   "ObstetricsAndGynecology",
	ReproductiveEndocrinology: "ReproductiveEndocrinology",
	MaternalFetalMedicine:     "MaternalFetalMedicine",
	GynecologicOncology:       "GynecologicOncology",
	Urogynecology:             "Urogynecology",

	Neurology:                    "Neurology",
	Psychiatry:                   "Psychiatry",
	ChildAndAdolescentPsychiatry: "ChildAndAdolescentPsychiatry",
	GeriatricPsychiatry:          "GeriatricPsychiatry",
	Neuropsychiatry:              "Neuropsychiatry",

	PhysicalMedicineAndRehabilitation: "PhysicalMedicineAndRehabilitation",
	SportsMedicine:                    "SportsMedicine",
	OccupationalMedicine:              "OccupationalMedicine",

	Dermatology:   "Dermatology",
	Ophthalmology: "Ophthalmology",
	Optometry:     "Optometry",

	PreventiveMedicine: "PreventiveMedicine",
	PublicHealth:       "PublicHealth",
	OccupationalHealth: "OccupationalHealth",
	AerospaceMedicine:  "AerospaceMedicine",

	MedicalGenetics:      "MedicalGenetics",
	MolecularMedicine:    "MolecularMedicine",
	ClinicalPharmacology: "ClinicalPharmacology",
	LaboratoryMedicine:   "LaboratoryMedicine",

	Dentistry:                   "Dentistry",
	OralAndMaxillofacialSurgery: "OralAndMaxillofacialSurgery",
	Orthodontics:                "Orthodontics",
	Periodontics:                "Periodontics",
	Endodontics:                 "Endodontics",
	Prosthodontics:              "Prosthodontics",
	PediatricDentistry:          "PediatricDentistry",

	PalliativeCare:    "PalliativeCare",
	SleepMedicine:     "SleepMedicine",
	AddictionMedicine: "AddictionMedicine",
	HospitalMedicine:  "HospitalMedicine",
	ForensicMedicine:  "ForensicMedicine",
	TropicalMedicine:  "TropicalMedicine",
	Immunopathology:   "Immunopathology",
	NuclearRadiology:  "NuclearRadiology",
}

var specialtyCategories = map[int]string{
	1:  "PrimaryCare",
	2:  "Surgery",
	3:  "InternalMedicineSubspecialties",
	4:  "Diagnostics",
	5:  "EmergencyAndCriticalCare",
	6:  "WomensHealth",
	7:  "NeurologyAndMentalHealth",
	8:  "MusculoskeletalAndRehabilitation",
	9:  "SkinAndEyes",
	10: "PublicHealth",
	11: "LaboratoryAndResearch",
	12: "Dental",
	13: "Other",
}

var specialtiesByName = func() map[string]Specialty {
	m := make(map[string]Specialty, len(specialtyNames))
	for s, name := range specialtyNames {
		m[strings.ToLower(name)] = s
	}
	return m
}()

func (s Specialty) Valid() bool {
	_, ok := specialtyNames[s]
	return ok
}

func (s Specialty) String() string {
	if name, ok := specialtyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Specialty(%d)", int(s))
}

func (s Specialty) Code() int {
	return int(s)
}

// Category returns the grouping the specialty belongs to.
func (s Specialty) Category() string {
	if !s.Valid() {
		return ""
	}
	return specialtyCategories[int(s)/100]
}

// ParseSpecialty accepts a specialty name (case and separator insensitive) or
// its numeric code. An empty input yields ErrSpecialtyRequired.
func ParseSpecialty(raw string) (Specialty, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SpecialtyNone, ErrSpecialtyRequired
	}
	if n, err := strconv.Atoi(raw); err == nil {
		s := Specialty(n)
		if !s.Valid() {
			return SpecialtyNone, fmt.Errorf("%w: %d", ErrUnknownSpecialty, n)
		}
		return s, nil
	}
	key := strings.ToLower(raw)
	key = strings.NewReplacer(" ", "", "_", "", "-", "", "&", "and").Replace(key)
	if s, ok := specialtiesByName[key]; ok {
		return s, nil
	}
	return SpecialtyNone, fmt.Errorf("%w: %q", ErrUnknownSpecialty, raw)
}

// Specialties lists every specialty ordered by code.
func Specialties() []Specialty {
	out := make([]Specialty, 0, len(specialtyNames))
	for s := range specialtyNames {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s Specialty) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSpecialty, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Specialty) UnmarshalText(b []byte) error {
	parsed, err := ParseSpecialty(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
