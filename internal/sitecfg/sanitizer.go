package sitecfg

import (
	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips markup from the free-text fields of the configuration
// document before it is stored. The document is edited by the admin but
// served to every visitor, so text fields must never carry HTML.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer creates a sanitizer with a strict strip-everything policy
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

func (s *Sanitizer) clean(v string) string {
	return s.policy.Sanitize(v)
}

func (s *Sanitizer) cleanAll(vs []string) {
	for i, v := range vs {
		vs[i] = s.clean(v)
	}
}

// SanitizeConfig cleans every free-text field of the document in place.
// URLs, icons, and IDs are left untouched; they are validated separately.
func (s *Sanitizer) SanitizeConfig(cfg *SiteConfig) {
	cfg.Metadata.Title = s.clean(cfg.Metadata.Title)
	cfg.Metadata.Description = s.clean(cfg.Metadata.Description)
	s.cleanAll(cfg.Metadata.Keywords)

	cfg.Branding.CompanyName = s.clean(cfg.Branding.CompanyName)

	cfg.Contact.Phone = s.clean(cfg.Contact.Phone)
	cfg.Contact.Address = s.clean(cfg.Contact.Address)
	cfg.Contact.City = s.clean(cfg.Contact.City)
	cfg.Contact.PostalCode = s.clean(cfg.Contact.PostalCode)

	cfg.Hero.Title = s.clean(cfg.Hero.Title)
	cfg.Hero.Subtitle = s.clean(cfg.Hero.Subtitle)
	cfg.Hero.Description = s.clean(cfg.Hero.Description)
	cfg.Hero.CTAText = s.clean(cfg.Hero.CTAText)
	for i := range cfg.Hero.Stats {
		cfg.Hero.Stats[i].Label = s.clean(cfg.Hero.Stats[i].Label)
	}

	if sp := cfg.Specializations; sp != nil {
		sp.Title = s.clean(sp.Title)
		sp.Subtitle = s.clean(sp.Subtitle)
		sp.CTAText = s.clean(sp.CTAText)
		for i := range sp.MainList {
			sp.MainList[i].Title = s.clean(sp.MainList[i].Title)
		}
		for i := range sp.SecondaryList {
			sp.SecondaryList[i].Title = s.clean(sp.SecondaryList[i].Title)
		}
	}

	for i := range cfg.Services {
		svc := &cfg.Services[i]
		svc.Title = s.clean(svc.Title)
		svc.Description = s.clean(svc.Description)
		svc.Price = s.clean(svc.Price)
		s.cleanAll(svc.Features)
	}

	s.sanitizeSection(cfg.Kinesitherapy)
	s.sanitizeSection(cfg.Methodology)

	if pi := cfg.PracticalInfo; pi != nil {
		pi.Title = s.clean(pi.Title)
		pi.SessionDuration = s.clean(pi.SessionDuration)
		pi.CTAText = s.clean(pi.CTAText)
		s.cleanAll(pi.Reminders)
		for i := range pi.Pricing {
			pi.Pricing[i].Label = s.clean(pi.Pricing[i].Label)
			pi.Pricing[i].Price = s.clean(pi.Pricing[i].Price)
			pi.Pricing[i].Duration = s.clean(pi.Pricing[i].Duration)
		}
		for i := range pi.InfoBlocks {
			pi.InfoBlocks[i].Title = s.clean(pi.InfoBlocks[i].Title)
			pi.InfoBlocks[i].Content = s.clean(pi.InfoBlocks[i].Content)
		}
	}

	cfg.About.Title = s.clean(cfg.About.Title)
	cfg.About.Description = s.clean(cfg.About.Description)
	s.cleanAll(cfg.About.Features)

	cfg.Gallery.Title = s.clean(cfg.Gallery.Title)
	s.cleanAll(cfg.Gallery.Categories)
	for i := range cfg.Gallery.Images {
		cfg.Gallery.Images[i].Alt = s.clean(cfg.Gallery.Images[i].Alt)
		cfg.Gallery.Images[i].Title = s.clean(cfg.Gallery.Images[i].Title)
	}

	cfg.Footer.Description = s.clean(cfg.Footer.Description)
	for i := range cfg.Footer.QuickLinks {
		cfg.Footer.QuickLinks[i].Title = s.clean(cfg.Footer.QuickLinks[i].Title)
	}
}

func (s *Sanitizer) sanitizeSection(sec *ContentSection) {
	if sec == nil {
		return
	}
	sec.Title = s.clean(sec.Title)
	sec.CTAText = s.clean(sec.CTAText)
	s.cleanAll(sec.Content)
}
