package home

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hashicorp-forge/hal/pkg/halurl"
)

// Descriptor is one entry of an entry-point ("home") document. Exactly one
// of Href and HrefTemplate is set; HrefTemplate requires HrefVars.
type Descriptor struct {
	Rel          string            `mapstructure:"rel" json:"rel"`
	Href         string            `mapstructure:"href" json:"href,omitempty"`
	HrefTemplate string            `mapstructure:"href-template" json:"href-template,omitempty"`
	HrefVars     map[string]string `mapstructure:"href-vars" json:"href-vars,omitempty"`
}

// Validate reports every descriptor invariant that does not hold, keyed by
// field name.
func (d Descriptor) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Rel, validation.Required),
		validation.Field(&d.Href,
			validation.When(d.HrefTemplate == "",
				validation.Required.Error("one of href or href-template is required")),
			validation.When(d.HrefTemplate != "",
				validation.Empty.Error("must not be set together with href-template")),
		),
		validation.Field(&d.HrefVars,
			validation.When(d.HrefTemplate != "",
				validation.Required.Error("is required with href-template")),
		),
	)
}

// Templated reports whether the descriptor carries an href-template.
func (d Descriptor) Templated() bool {
	return d.HrefTemplate != ""
}

// resolveAgainst makes root-relative hrefs absolute against host.
func (d Descriptor) resolveAgainst(host string) Descriptor {
	if d.Href != "" {
		d.Href = halurl.ToAbsoluteURL(d.Href, host)
	}
	if d.HrefTemplate != "" {
		d.HrefTemplate = halurl.ToAbsoluteURL(d.HrefTemplate, host)
	}
	return d
}
