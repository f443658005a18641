// Package sitecfg manages the public site configuration document: the single
// JSON document that drives every section of the practice website.
package sitecfg

// SiteConfig is the full site configuration document. It is stored as a
// single JSONB row and served verbatim to the public site.
type SiteConfig struct {
	Version         string            `json:"version"`
	Metadata        Metadata          `json:"metadata"`
	Branding        Branding          `json:"branding" validate:"required"`
	Theme           map[string]string `json:"theme,omitempty"`
	Contact         Contact           `json:"contact"`
	Hero            Hero              `json:"hero"`
	Specializations *Specializations  `json:"specializations,omitempty"`
	Services        []ServiceItem     `json:"services"`
	Kinesitherapy   *ContentSection   `json:"kinesitherapy,omitempty"`
	Methodology     *ContentSection   `json:"methodology,omitempty"`
	PracticalInfo   *PracticalInfo    `json:"practicalInfo,omitempty"`
	About           About             `json:"about"`
	Gallery         Gallery           `json:"gallery"`
	Footer          Footer            `json:"footer"`
	LastModified    string            `json:"lastModified,omitempty"`
}

// Metadata holds the page-level SEO fields
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// Branding identifies the practice. CompanyName is the only field the save
// operation requires to be present.
type Branding struct {
	CompanyName string `json:"companyName" validate:"required"`
	Logo        string `json:"logo"`
	Favicon     string `json:"favicon"`
}

// Contact holds the practice contact details
type Contact struct {
	Phone      string `json:"phone"`
	Email      string `json:"email" validate:"omitempty,email"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
}

// Hero is the landing section
type Hero struct {
	Title           string     `json:"title"`
	Subtitle        string     `json:"subtitle"`
	Description     string     `json:"description"`
	BackgroundImage string     `json:"backgroundImage"`
	CTAText         string     `json:"ctaText"`
	CTALink         string     `json:"ctaLink"`
	Stats           []HeroStat `json:"stats,omitempty"`
}

// HeroStat is a headline figure shown in the hero section
type HeroStat struct {
	ID    string      `json:"id"`
	Icon  string      `json:"icon"`
	Value interface{} `json:"value"`
	Label string      `json:"label"`
}

// Specializations lists the practice's areas of expertise
type Specializations struct {
	Title         string               `json:"title"`
	Subtitle      string               `json:"subtitle"`
	MainList      []SpecializationItem `json:"mainList"`
	SecondaryList []SpecializationItem `json:"secondaryList"`
	CTAText       string               `json:"ctaText,omitempty"`
	CTALink       string               `json:"ctaLink,omitempty"`
}

// SpecializationItem is a single specialization entry
type SpecializationItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ServiceItem describes one treatment offered by the practice
type ServiceItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Price       string   `json:"price,omitempty"`
	Features    []string `json:"features"`
	Icon        string   `json:"icon"`
}

// ContentSection is a titled block of paragraphs with an illustration,
// used for the kinesitherapy and methodology sections.
type ContentSection struct {
	Title   string   `json:"title"`
	Content []string `json:"content"`
	Image   string   `json:"image"`
	CTAText string   `json:"ctaText,omitempty"`
	CTALink string   `json:"ctaLink,omitempty"`
}

// PracticalInfo holds session, pricing, and visit preparation details
type PracticalInfo struct {
	Title           string        `json:"title"`
	SessionDuration string        `json:"sessionDuration"`
	Pricing         []PricingInfo `json:"pricing"`
	Reminders       []string      `json:"reminders"`
	InfoBlocks      []InfoBlock   `json:"infoBlocks"`
	CTAText         string        `json:"ctaText,omitempty"`
	CTALink         string        `json:"ctaLink,omitempty"`
}

// PricingInfo is a single pricing line
type PricingInfo struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Price    string `json:"price"`
	Duration string `json:"duration,omitempty"`
}

// InfoBlock is a titled free-text block in the practical info section
type InfoBlock struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// About is the practitioner presentation section
type About struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Features    []string `json:"features"`
}

// Gallery holds the photo gallery shown on the site
type Gallery struct {
	Title      string         `json:"title"`
	Images     []GalleryImage `json:"images"`
	Categories []string       `json:"categories"`
}

// GalleryImage is a single gallery entry. URL must parse as an absolute URL.
type GalleryImage struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Alt      string `json:"alt"`
	Category string `json:"category"`
	Title    string `json:"title,omitempty"`
}

// Footer holds the bottom-of-page links and description
type Footer struct {
	Description string       `json:"description"`
	SocialLinks []SocialLink `json:"socialLinks"`
	QuickLinks  []QuickLink  `json:"quickLinks"`
}

// SocialLink points at a social media profile
type SocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
	Icon     string `json:"icon"`
}

// QuickLink is a footer navigation link
type QuickLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}
