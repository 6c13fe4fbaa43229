package evp

import (
	"github.com/google/uuid"

	"github.com/evidenceangel/evidenceangel-go/pkg/evperrors"
)

// CustomField is a per-package schema extension adding a string-valued
// attribute to every test case (spec.md 3, CustomMetadataField).
type CustomField struct {
	ID          string
	Name        string
	Description string
	Primary     bool
}

// CustomFields returns the package's declared custom fields: those loaded by
// Open first, in ascending ID order, then those added through
// AddCustomField, in the order they were added.
func (p *Package) CustomFields() []CustomField {
	out := make([]CustomField, 0, len(p.customFieldOrder))
	for _, id := range p.customFieldOrder {
		out = append(out, *p.customFields[id])
	}
	return out
}

// AddCustomField declares a new custom field and returns its generated ID.
func (p *Package) AddCustomField(name, description string) (string, error) {
	if name == "" {
		return "", &evperrors.NameEmpty{Field: "custom field name"}
	}
	id := uuid.NewString()
	p.customFields[id] = &CustomField{ID: id, Name: name, Description: description}
	p.customFieldOrder = append(p.customFieldOrder, id)
	p.markDirty()
	return id, nil
}

// RemoveCustomField deletes a declared custom field. It does not retroactively
// strip values test cases may already have recorded under that ID. If any
// test case still holds a value for the removed ID, Validate (and therefore
// Save) will reject the package with InvalidTestCase until that value is
// also cleared.
func (p *Package) RemoveCustomField(id string) error {
	if _, ok := p.customFields[id]; !ok {
		return &evperrors.InvalidManifest{Reason: "unknown custom field id: " + id}
	}
	delete(p.customFields, id)
	for i, existing := range p.customFieldOrder {
		if existing == id {
			p.customFieldOrder = append(p.customFieldOrder[:i], p.customFieldOrder[i+1:]...)
			break
		}
	}
	p.markDirty()
	return nil
}

// EditCustomField updates the name/description of an existing custom field.
func (p *Package) EditCustomField(id, name, description string) error {
	f, ok := p.customFields[id]
	if !ok {
		return &evperrors.InvalidManifest{Reason: "unknown custom field id: " + id}
	}
	if name == "" {
		return &evperrors.NameEmpty{Field: "custom field name"}
	}
	f.Name = name
	f.Description = description
	p.markDirty()
	return nil
}

// PromotePrimary marks id as the package's primary custom field, demoting
// any previous primary (spec.md invariant: at most one primary field).
func (p *Package) PromotePrimary(id string) error {
	f, ok := p.customFields[id]
	if !ok {
		return &evperrors.InvalidManifest{Reason: "unknown custom field id: " + id}
	}
	for _, existing := range p.customFields {
		existing.Primary = false
	}
	f.Primary = true
	p.markDirty()
	return nil
}

// ClearPrimary demotes the package's primary custom field, if any.
func (p *Package) ClearPrimary() {
	for _, f := range p.customFields {
		f.Primary = false
	}
	p.markDirty()
}
