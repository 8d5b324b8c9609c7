package models

import "time"

type PageType string

const (
	PageTypeSwagger  PageType = "SWAGGER"
	PageTypeAsyncApi PageType = "ASYNCAPI"
	PageTypeMarkdown PageType = "MARKDOWN"
)

type PageVisibility string

const (
	PageVisibilityPublic  PageVisibility = "PUBLIC"
	PageVisibilityPrivate PageVisibility = "PRIVATE"
)

// DocumentationPage is a documentation artifact attached to a federated API.
type DocumentationPage struct {
	ID            string            `db:"id" json:"id"`
	ReferenceID   string            `db:"reference_id" json:"reference_id"`
	Name          string            `db:"name" json:"name"`
	Type          PageType          `db:"type" json:"type"`
	Content       string            `db:"content" json:"content"`
	Visibility    PageVisibility    `db:"visibility" json:"visibility"`
	Homepage      bool              `db:"homepage" json:"homepage"`
	Published     bool              `db:"published" json:"published"`
	Configuration map[string]string `db:"-" json:"configuration,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// PageName derives the page name for an ingested documentation artifact from
// the owning API's name.
func PageName(apiName string, pageType PageType) string {
	switch pageType {
	case PageTypeSwagger:
		return apiName + "-oas.yml"
	case PageTypeAsyncApi:
		return apiName + ".json"
	default:
		return apiName
	}
}

// PageConfiguration returns the viewer configuration for an ingested page
// type. Only swagger pages carry one.
func PageConfiguration(pageType PageType) map[string]string {
	if pageType == PageTypeSwagger {
		return map[string]string{
			"tryIt":  "true",
			"viewer": "Swagger",
		}
	}
	return nil
}

// NewDocumentationPage builds the page record for an external documentation
// artifact. Ingested pages are private, published and set as the homepage.
func NewDocumentationPage(id, apiID, apiName string, external ExternalPage, now time.Time) DocumentationPage {
	return DocumentationPage{
		ID:            id,
		ReferenceID:   apiID,
		Name:          PageName(apiName, external.Type),
		Type:          external.Type,
		Content:       external.Content,
		Visibility:    PageVisibilityPrivate,
		Homepage:      true,
		Published:     true,
		Configuration: PageConfiguration(external.Type),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ApplyExternal merges re-discovered documentation content onto the existing
// page, renaming it when the API name changed.
func (p DocumentationPage) ApplyExternal(apiName string, external ExternalPage, now time.Time) DocumentationPage {
	updated := p
	updated.Name = PageName(apiName, p.Type)
	updated.Content = external.Content
	updated.UpdatedAt = now
	return updated
}
