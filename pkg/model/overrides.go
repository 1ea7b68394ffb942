package model

// FieldOverride is a partial Field shallow-merged on top of a compiled field.
// Nil pointers and nil slices/maps leave the compiled value in place.
// Default cannot be reset to nil through an override.
type FieldOverride struct {
	Title       *string
	Description *string
	Type        *FieldType
	Format      *string
	Options     []Option
	Default     any
	Required    *bool
	Validations *Validations
	Attributes  *Attributes
	Extensions  map[string]any
}

// Apply returns field with the override merged in.
func (o FieldOverride) Apply(field Field) Field {
	if o.Title != nil {
		field.Title = *o.Title
	}
	if o.Description != nil {
		field.Description = *o.Description
	}
	if o.Type != nil {
		field.Type = *o.Type
	}
	if o.Format != nil {
		field.Format = *o.Format
	}
	if o.Options != nil {
		field.Options = append([]Option(nil), o.Options...)
	}
	if o.Default != nil {
		field.Default = o.Default
	}
	if o.Required != nil {
		field.Required = *o.Required
	}
	if o.Validations != nil {
		field.Validations = *o.Validations
	}
	if o.Attributes != nil {
		field.Attributes = *o.Attributes
	}
	if o.Extensions != nil {
		merged := make(map[string]any, len(field.Extensions)+len(o.Extensions))
		for key, value := range field.Extensions {
			merged[key] = value
		}
		for key, value := range o.Extensions {
			merged[key] = value
		}
		field.Extensions = merged
	}
	return field
}

// Overrides maps full field ids to overrides.
type Overrides map[string]FieldOverride
