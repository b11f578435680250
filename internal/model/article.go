package model

// ArticleStatus is the publication state of a blog article.
type ArticleStatus string

const (
	ArticleDraft         ArticleStatus = "draft"
	ArticlePendingReview ArticleStatus = "pending_review"
	ArticlePublished     ArticleStatus = "published"
	ArticleArchived      ArticleStatus = "archived"
)

type ArticleFormat string

const (
	FormatStandard   ArticleFormat = "standard"
	FormatListicle   ArticleFormat = "listicle"
	FormatHowTo      ArticleFormat = "how-to"
	FormatReview     ArticleFormat = "review"
	FormatComparison ArticleFormat = "comparison"
	FormatGuide      ArticleFormat = "guide"
)

type SortBy string

const (
	SortPublishedAt SortBy = "publishedAt"
	SortCreatedAt   SortBy = "createdAt"
	SortViews       SortBy = "views"
	SortLikes       SortBy = "likes"
	SortTitle       SortBy = "title"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type Author struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Bio    string `json:"bio,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role,omitempty"`
}

type SEOMetadata struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Keywords      []string `json:"keywords"`
	CanonicalURL  string   `json:"canonicalUrl,omitempty"`
	OGImage       string   `json:"ogImage,omitempty"`
	OGTitle       string   `json:"ogTitle,omitempty"`
	OGDescription string   `json:"ogDescription,omitempty"`
	TwitterCard   string   `json:"twitterCard,omitempty"`
	NoIndex       bool     `json:"noIndex,omitempty"`
	NoFollow      bool     `json:"noFollow,omitempty"`
}

type ArticleImage struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

type ArticleImages struct {
	Featured    *ArticleImage  `json:"featured,omitempty"`
	Social      *ArticleImage  `json:"social,omitempty"`
	Thumbnail   *ArticleImage  `json:"thumbnail,omitempty"`
	Infographic *ArticleImage  `json:"infographic,omitempty"`
	Gallery     []ArticleImage `json:"gallery,omitempty"`
}

type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Source struct {
	Title       string `json:"title"`
	URL         string `json:"url,omitempty"`
	Author      string `json:"author,omitempty"`
	Publication string `json:"publication,omitempty"`
	Date        string `json:"date,omitempty"`
	Type        string `json:"type,omitempty"`
}

type TOCItem struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

type RelatedArticle struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Excerpt   string `json:"excerpt,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type GenerationMetadata struct {
	PipelineVersion string  `json:"pipelineVersion,omitempty"`
	Model           string  `json:"model,omitempty"`
	TotalCost       float64 `json:"totalCost,omitempty"`
	GeneratedAt     string  `json:"generatedAt,omitempty"`
	QualityScore    float64 `json:"qualityScore,omitempty"`
	FactCheckScore  float64 `json:"factCheckScore,omitempty"`
}

// Article is the full blog article as served by the backend. The site never
// writes articles; only the view counter is incremented from here.
type Article struct {
	ID                 string                 `json:"id"`
	Title              string                 `json:"title"`
	Slug               string                 `json:"slug"`
	Excerpt            string                 `json:"excerpt"`
	Content            string                 `json:"content"`
	ContentFormat      string                 `json:"contentFormat"`
	Category           string                 `json:"category"`
	Tags               []string               `json:"tags"`
	PrimaryKeyword     string                 `json:"primaryKeyword"`
	SecondaryKeywords  []string               `json:"secondaryKeywords,omitempty"`
	Status             ArticleStatus          `json:"status"`
	PublishedAt        string                 `json:"publishedAt,omitempty"`
	ScheduledAt        string                 `json:"scheduledAt,omitempty"`
	Featured           bool                   `json:"featured"`
	Author             Author                 `json:"author"`
	SEO                SEOMetadata            `json:"seo"`
	Images             *ArticleImages         `json:"images,omitempty"`
	TableOfContents    []TOCItem              `json:"tableOfContents,omitempty"`
	FAQs               []FAQItem              `json:"faqs,omitempty"`
	Sources            []Source               `json:"sources,omitempty"`
	StructuredData     map[string]interface{} `json:"structuredData,omitempty"`
	Views              int64                  `json:"views"`
	Likes              int64                  `json:"likes"`
	ReadingTime        int                    `json:"readingTime"`
	WordCount          int                    `json:"wordCount"`
	RelatedArticles    []RelatedArticle       `json:"relatedArticles,omitempty"`
	Format             ArticleFormat          `json:"format"`
	IsDeleted          bool                   `json:"isDeleted"`
	IsEdited           bool                   `json:"isEdited"`
	GenerationMetadata *GenerationMetadata    `json:"generationMetadata,omitempty"`
	CreatedAt          string                 `json:"createdAt"`
	UpdatedAt          string                 `json:"updatedAt"`
}

// ArticleListItem is the lighter listing shape.
type ArticleListItem struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Excerpt     string        `json:"excerpt"`
	Category    string        `json:"category"`
	Tags        []string      `json:"tags"`
	Status      string        `json:"status"`
	PublishedAt string        `json:"publishedAt,omitempty"`
	UpdatedAt   string        `json:"updatedAt,omitempty"`
	Featured    bool          `json:"featured"`
	ReadingTime int           `json:"readingTime"`
	Views       int64         `json:"views"`
	Likes       int64         `json:"likes"`
	Thumbnail   *ArticleImage `json:"thumbnail,omitempty"`
}

type PaginationInfo struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

type PaginatedArticles struct {
	Items      []ArticleListItem `json:"items"`
	Pagination PaginationInfo    `json:"pagination"`
}

// ArticlesParams are the list query parameters understood by the backend.
type ArticlesParams struct {
	Status    ArticleStatus `json:"status,omitempty"`
	Category  string        `json:"category,omitempty"`
	Tag       string        `json:"tag,omitempty"`
	AuthorID  string        `json:"authorId,omitempty"`
	Featured  *bool         `json:"featured,omitempty"`
	Search    string        `json:"search,omitempty"`
	SortBy    SortBy        `json:"sortBy,omitempty"`
	SortOrder SortOrder     `json:"sortOrder,omitempty"`
	Page      int           `json:"page,omitempty"`
	Limit     int           `json:"limit,omitempty"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
