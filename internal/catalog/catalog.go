// Package catalog holds the read-only reference data the parser matches
// against: patients, offices and services, plus the office keyword fallbacks.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Patient is a bookable patient.
type Patient struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Office is a physical location appointments take place in.
type Office struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Service is a treatment that can be booked.
type Service struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// OfficeKeyword maps a spoken keyword to an office when the full office name
// was not said ("norte" -> Sede Norte).
type OfficeKeyword struct {
	Keyword  string `json:"keyword" yaml:"keyword"`
	OfficeID string `json:"officeId" yaml:"officeId"`
}

// Catalog is immutable once built. Declaration order matters: the first
// matching entry wins during extraction.
type Catalog struct {
	Patients       []Patient       `json:"patients" yaml:"patients"`
	Offices        []Office        `json:"offices" yaml:"offices"`
	Services       []Service       `json:"services" yaml:"services"`
	OfficeKeywords []OfficeKeyword `json:"officeKeywords" yaml:"officeKeywords"`
}

// Default returns the built-in clinic catalog.
func Default() *Catalog {
	return &Catalog{
		Patients: []Patient{
			{ID: "1", Name: "María Pérez"},
			{ID: "2", Name: "Juan Rodríguez"},
			{ID: "3", Name: "Carlos Sánchez"},
			{ID: "4", Name: "Ana Martínez"},
			{ID: "5", Name: "Pedro López"},
		},
		Offices: []Office{
			{ID: "1", Name: "Consultorio Principal"},
			{ID: "2", Name: "Sede Norte"},
		},
		Services: []Service{
			{ID: "1", Name: "Consulta"},
			{ID: "2", Name: "Limpieza Dental"},
			{ID: "3", Name: "Control"},
			{ID: "4", Name: "Reunión"},
		},
		OfficeKeywords: []OfficeKeyword{
			{Keyword: "norte", OfficeID: "2"},
			{Keyword: "principal", OfficeID: "1"},
		},
	}
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that ids are present and unique per list and that every
// keyword points at a known office.
func (c *Catalog) Validate() error {
	var errs []error
	check := func(kind string, ids, names []string) {
		seen := make(map[string]bool, len(ids))
		for i, id := range ids {
			if strings.TrimSpace(id) == "" || strings.TrimSpace(names[i]) == "" {
				errs = append(errs, fmt.Errorf("catalog: %s #%d has an empty id or name", kind, i+1))
				continue
			}
			if seen[id] {
				errs = append(errs, fmt.Errorf("catalog: duplicate %s id %q", kind, id))
			}
			seen[id] = true
		}
	}

	var ids, names []string
	for _, p := range c.Patients {
		ids, names = append(ids, p.ID), append(names, p.Name)
	}
	check("patient", ids, names)

	ids, names = nil, nil
	for _, o := range c.Offices {
		ids, names = append(ids, o.ID), append(names, o.Name)
	}
	check("office", ids, names)

	ids, names = nil, nil
	for _, s := range c.Services {
		ids, names = append(ids, s.ID), append(names, s.Name)
	}
	check("service", ids, names)

	for _, k := range c.OfficeKeywords {
		if strings.TrimSpace(k.Keyword) == "" {
			errs = append(errs, errors.New("catalog: office keyword is empty"))
			continue
		}
		if _, ok := c.Office(k.OfficeID); !ok {
			errs = append(errs, fmt.Errorf("catalog: keyword %q references unknown office %q", k.Keyword, k.OfficeID))
		}
	}
	return errors.Join(errs...)
}

// Patient looks a patient up by id.
func (c *Catalog) Patient(id string) (Patient, bool) {
	for _, p := range c.Patients {
		if p.ID == id {
			return p, true
		}
	}
	return Patient{}, false
}

// Office looks an office up by id.
func (c *Catalog) Office(id string) (Office, bool) {
	for _, o := range c.Offices {
		if o.ID == id {
			return o, true
		}
	}
	return Office{}, false
}

// Service looks a service up by id.
func (c *Catalog) Service(id string) (Service, bool) {
	for _, s := range c.Services {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}

// PatientByName finds a patient by display name, ignoring case.
func (c *Catalog) PatientByName(name string) (Patient, bool) {
	for _, p := range c.Patients {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return Patient{}, false
}

// OfficeByName finds an office by display name, ignoring case.
func (c *Catalog) OfficeByName(name string) (Office, bool) {
	for _, o := range c.Offices {
		if strings.EqualFold(o.Name, strings.TrimSpace(name)) {
			return o, true
		}
	}
	return Office{}, false
}

// ServiceByName finds a service by display name, ignoring case.
func (c *Catalog) ServiceByName(name string) (Service, bool) {
	for _, s := range c.Services {
		if strings.EqualFold(s.Name, strings.TrimSpace(name)) {
			return s, true
		}
	}
	return Service{}, false
}
