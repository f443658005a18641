package sitecfg

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kinesite/backend/internal/repository"
)

// mockSiteConfigRepository implements repository.SiteConfigRepository for testing
type mockSiteConfigRepository struct {
	document     []byte
	lastModified time.Time
}

func (m *mockSiteConfigRepository) Get(ctx context.Context) ([]byte, time.Time, error) {
	if m.document == nil {
		return nil, time.Time{}, repository.ErrSiteConfigNotFound
	}
	return m.document, m.lastModified, nil
}

func (m *mockSiteConfigRepository) Save(ctx context.Context, document []byte, lastModified time.Time) error {
	m.document = document
	m.lastModified = lastModified
	return nil
}

func validDocument() map[string]interface{} {
	return map[string]interface{}{
		"version": "1.0",
		"branding": map[string]interface{}{
			"companyName": "Cabinet Martin",
		},
		"hero": map[string]interface{}{
			"title": "Votre kinésithérapeute",
		},
		"gallery": map[string]interface{}{
			"title": "Le cabinet",
			"images": []map[string]interface{}{
				{"id": "1", "url": "https://cdn.example.com/room.jpg", "alt": "Salle", "category": "cabinet"},
			},
		},
	}
}

func marshal(t *testing.T, doc map[string]interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to marshal test document: %v", err)
	}
	return raw
}

func TestService_SaveAndGet(t *testing.T) {
	repo := &mockSiteConfigRepository{}
	service := NewService(repo, nil, nil)
	ctx := context.Background()

	lastModified, err := service.Save(ctx, marshal(t, validDocument()))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if lastModified.IsZero() {
		t.Error("Save should return the stamped modification time")
	}

	raw, err := service.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	var stored SiteConfig
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("stored document is not valid JSON: %v", err)
	}
	if stored.Branding.CompanyName != "Cabinet Martin" {
		t.Errorf("company name = %q", stored.Branding.CompanyName)
	}
	if stored.LastModified == "" {
		t.Error("stored document should carry a lastModified stamp")
	}
	if _, err := time.Parse(time.RFC3339, stored.LastModified); err != nil {
		t.Errorf("lastModified is not RFC3339: %q", stored.LastModified)
	}
}

func TestService_Get_NotFound(t *testing.T) {
	service := NewService(&mockSiteConfigRepository{}, nil, nil)

	_, err := service.Get(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Save_RequiresCompanyName(t *testing.T) {
	service := NewService(&mockSiteConfigRepository{}, nil, nil)

	doc := validDocument()
	doc["branding"] = map[string]interface{}{"companyName": ""}

	_, err := service.Save(context.Background(), marshal(t, doc))
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestService_Save_RejectsMalformedJSON(t *testing.T) {
	service := NewService(&mockSiteConfigRepository{}, nil, nil)

	_, err := service.Save(context.Background(), []byte(`{"branding":`))
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestService_Save_ValidatesGalleryURLs(t *testing.T) {
	service := NewService(&mockSiteConfigRepository{}, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		url  string
		ok   bool
	}{
		{"absolute https", "https://cdn.example.com/a.jpg", true},
		{"absolute http", "http://cdn.example.com/a.jpg", true},
		{"site relative", "/images/a.jpg", true},
		{"bare relative", "images/a.jpg", false},
		{"empty", "", false},
		{"scheme only", "https://", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument()
			doc["gallery"] = map[string]interface{}{
				"images": []map[string]interface{}{
					{"id": "1", "url": tt.url, "alt": "x", "category": "cabinet"},
				},
			}

			_, err := service.Save(ctx, marshal(t, doc))
			if tt.ok && err != nil {
				t.Errorf("url %q should be accepted: %v", tt.url, err)
			}
			if !tt.ok && !errors.Is(err, ErrValidationFailed) {
				t.Errorf("url %q should be rejected, got %v", tt.url, err)
			}
		})
	}
}

func TestService_Save_StripsMarkup(t *testing.T) {
	repo := &mockSiteConfigRepository{}
	service := NewService(repo, nil, nil)

	doc := validDocument()
	doc["hero"] = map[string]interface{}{
		"title":       `Bienvenue <script>alert("xss")</script>`,
		"description": `<b>Soins</b> personnalisés`,
	}

	if _, err := service.Save(context.Background(), marshal(t, doc)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var stored SiteConfig
	if err := json.Unmarshal(repo.document, &stored); err != nil {
		t.Fatalf("stored document is not valid JSON: %v", err)
	}

	if strings.Contains(stored.Hero.Title, "<script>") {
		t.Errorf("script tag survived sanitization: %q", stored.Hero.Title)
	}
	if strings.Contains(stored.Hero.Description, "<b>") {
		t.Errorf("markup survived sanitization: %q", stored.Hero.Description)
	}
	if !strings.Contains(stored.Hero.Description, "Soins") {
		t.Errorf("text content lost during sanitization: %q", stored.Hero.Description)
	}
}
