package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhamdeew/hex-tool/internal/config"
	"github.com/rhamdeew/hex-tool/internal/content"
	"github.com/rhamdeew/hex-tool/internal/hexo"
	"github.com/rhamdeew/hex-tool/internal/search"
	"github.com/rhamdeew/hex-tool/internal/supervisor"
)

type (
	// FrontmatterData is the wire form of a frontmatter block. Custom holds
	// the unrecognized keys.
	FrontmatterData struct {
		Title        string         `json:"title"`
		Date         string         `json:"date,omitempty"`
		Tags         []string       `json:"tags"`
		Categories   []string       `json:"categories"`
		Permalink    *string        `json:"permalink,omitempty"`
		ListImage    *string        `json:"listImage,omitempty"`
		ListImageAlt *string        `json:"listImageAlt,omitempty"`
		MainImage    *string        `json:"mainImage,omitempty"`
		MainImageAlt *string        `json:"mainImageAlt,omitempty"`
		Custom       map[string]any `json:"custom,omitempty"`
	}

	// ParseDocumentInput contains a raw document.
	ParseDocumentInput struct {
		Content string `json:"content" jsonschema:"Full text of a Hexo markdown file, starting with a --- line"`
	}

	// ParseDocumentOutput contains the parsed document.
	ParseDocumentOutput struct {
		Frontmatter FrontmatterData `json:"frontmatter"`
		Body        string          `json:"body"`
	}

	// SerializeDocumentInput contains a document to render.
	SerializeDocumentInput struct {
		Frontmatter FrontmatterData `json:"frontmatter" jsonschema:"Frontmatter fields"`
		Body        string          `json:"body,omitempty" jsonschema:"Markdown body"`
	}

	// SerializeDocumentOutput contains the rendered file text.
	SerializeDocumentOutput struct {
		Content string `json:"content"`
	}

	// ValidateFrontmatterInput contains frontmatter to check.
	ValidateFrontmatterInput struct {
		Frontmatter FrontmatterData `json:"frontmatter" jsonschema:"Frontmatter fields to validate"`
	}

	// OpenProjectInput selects a project.
	OpenProjectInput struct {
		Path string `json:"path" jsonschema:"Path to the Hexo project root (the directory holding _config.yml)"`
	}

	// ProjectInfoInput takes no parameters.
	ProjectInfoInput struct{}

	// ProjectInfoOutput describes the open project.
	ProjectInfoOutput struct {
		Root          string          `json:"root"`
		Site          hexo.SiteConfig `json:"site"`
		Counts        map[string]int  `json:"counts"`
		ServerRunning bool            `json:"serverRunning"`
	}

	// ListEntitiesInput contains parameters for listing content.
	ListEntitiesInput struct {
		Kind   string `json:"kind" jsonschema:"Content kind: post, page or draft"`
		Limit  int    `json:"limit,omitempty" jsonschema:"Maximum entities to return (default: all)"`
		Offset int    `json:"offset,omitempty" jsonschema:"Skip first N entities for pagination (default: 0)"`
	}

	// EntitySummary is an entity without its body.
	EntitySummary struct {
		ID         string   `json:"id"`
		Kind       string   `json:"kind"`
		Title      string   `json:"title"`
		Date       string   `json:"date"`
		Tags       []string `json:"tags"`
		Categories []string `json:"categories"`
		CreatedAt  int64    `json:"createdAt"`
		ModifiedAt int64    `json:"modifiedAt"`
	}

	// ListEntitiesOutput contains a page of entities, newest first.
	ListEntitiesOutput struct {
		Entities []EntitySummary `json:"entities"`
		Total    int             `json:"total"`
		HasMore  bool            `json:"hasMore,omitempty"`
	}

	// EntityRef names an entity.
	EntityRef struct {
		Kind string `json:"kind" jsonschema:"Content kind: post, page or draft"`
		ID   string `json:"id" jsonschema:"Entity ID: path relative to the project root, e.g. source/_posts/hello.md"`
	}

	// EntityOutput is a full entity.
	EntityOutput struct {
		ID          string          `json:"id"`
		Kind        string          `json:"kind"`
		Title       string          `json:"title"`
		Date        string          `json:"date"`
		Content     string          `json:"content"`
		Frontmatter FrontmatterData `json:"frontmatter"`
		FilePath    string          `json:"filePath"`
		CreatedAt   int64           `json:"createdAt"`
		ModifiedAt  int64           `json:"modifiedAt"`
		PreviewURL  string          `json:"previewUrl,omitempty"`
	}

	// SaveEntityInput contains new metadata and body for an entity.
	SaveEntityInput struct {
		Kind        string          `json:"kind" jsonschema:"Content kind: post, page or draft"`
		ID          string          `json:"id" jsonschema:"Entity ID as returned by list_entities"`
		Frontmatter FrontmatterData `json:"frontmatter" jsonschema:"Complete frontmatter; custom keys omitted here are removed"`
		Body        string          `json:"body" jsonschema:"Markdown body"`
	}

	// CreateEntityInput contains parameters for a new entity.
	CreateEntityInput struct {
		Kind  string `json:"kind" jsonschema:"Content kind: post, page or draft"`
		Title string `json:"title" jsonschema:"Title; the file name is derived from it"`
	}

	// DeleteEntityInput names an entity to delete.
	DeleteEntityInput struct {
		Kind    string `json:"kind" jsonschema:"Content kind: post, page or draft"`
		ID      string `json:"id" jsonschema:"Entity ID as returned by list_entities"`
		Confirm string `json:"confirm" jsonschema:"Must be set to 'yes' to confirm deletion"`
	}

	// DeleteOutput contains the result of a deletion.
	DeleteOutput struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}

	// PublishDraftInput names a draft.
	PublishDraftInput struct {
		ID string `json:"id" jsonschema:"Draft ID, e.g. source/_drafts/idea.md"`
	}

	// RenderEntityOutput contains the rendered body.
	RenderEntityOutput struct {
		ID         string `json:"id"`
		HTML       string `json:"html"`
		PreviewURL string `json:"previewUrl,omitempty"`
	}

	// SearchInput contains parameters for searching content.
	SearchInput struct {
		Query         string   `json:"query" jsonschema:"Search query (plain text or regex if useRegex=true)"`
		Kinds         []string `json:"kinds,omitempty" jsonschema:"Content kinds to search (default: all)"`
		UseRegex      bool     `json:"useRegex,omitempty" jsonschema:"Treat query as regex pattern (default: false)"`
		CaseSensitive bool     `json:"caseSensitive,omitempty" jsonschema:"Case sensitive search (default: false)"`
		ContextLines  int      `json:"contextLines,omitempty" jsonschema:"Lines of context before/after body matches (default: 2)"`
		Limit         int      `json:"limit,omitempty" jsonschema:"Maximum results (default: 15)"`
		Offset        int      `json:"offset,omitempty" jsonschema:"Skip first N results for pagination (default: 0)"`
	}

	// SearchOutput contains search results.
	SearchOutput struct {
		Results []search.Result `json:"results"`
		Total   int             `json:"total"`
		HasMore bool            `json:"hasMore,omitempty"`
	}

	// TaxonomyInput selects the kinds to aggregate.
	TaxonomyInput struct {
		Kinds []string `json:"kinds,omitempty" jsonschema:"Content kinds to include (default: all)"`
	}

	// ListImagesInput takes no parameters.
	ListImagesInput struct{}

	// ListImagesOutput contains the project's images.
	ListImagesOutput struct {
		Images []content.Image `json:"images"`
	}

	// CopyImageInput names a file to import.
	CopyImageInput struct {
		Source string `json:"source" jsonschema:"Absolute path of the image to copy into source/images"`
	}

	// DeleteImageInput names an image to delete.
	DeleteImageInput struct {
		Name  string `json:"name" jsonschema:"Image file name in source/images"`
		Force bool   `json:"force,omitempty" jsonschema:"Delete even if content still references the image (default: false)"`
	}

	// DeleteImageOutput contains the result of deleting an image.
	DeleteImageOutput struct {
		Success bool   `json:"success"`
		Name    string `json:"name"`
	}

	// ServerInput selects a project for server tools.
	ServerInput struct {
		ProjectPath string `json:"projectPath,omitempty" jsonschema:"Hexo project root (default: the open project)"`
	}

	// ServerOutput describes a server.
	ServerOutput struct {
		ID      string             `json:"id"`
		Running bool               `json:"running"`
		URL     string             `json:"url,omitempty"`
		Status  *supervisor.Status `json:"status,omitempty"`
	}

	// ServerStopInput names a server.
	ServerStopInput struct {
		ID string `json:"id,omitempty" jsonschema:"Server ID as returned by server_start (default: the open project)"`
	}

	// ServerStopOutput contains the result of stopping a server.
	ServerStopOutput struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}

	// ServerStatusOutput lists running servers.
	ServerStatusOutput struct {
		Servers []supervisor.Status `json:"servers"`
	}

	// RunGeneratorInput contains a generator command.
	RunGeneratorInput struct {
		Verb        string `json:"verb" jsonschema:"Generator command, e.g. generate, clean or deploy"`
		ProjectPath string `json:"projectPath,omitempty" jsonschema:"Hexo project root (default: the open project)"`
	}

	// GetAppConfigInput takes no parameters.
	GetAppConfigInput struct{}

	// SaveAppConfigInput contains the full configuration to store.
	SaveAppConfigInput struct {
		Config config.Config `json:"config" jsonschema:"Complete application configuration"`
	}
)

func registerTools(server *mcp.Server, a *app) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "parse_document",
		Description: "Parse the text of a Hexo markdown file into frontmatter and body. Fails if the text does not start with a --- line or the block is not closed.",
	}, a.handleParseDocument)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "serialize_document",
		Description: "Render frontmatter and body as Hexo markdown file text. Recognized keys come first in a fixed order, then custom keys.",
	}, a.handleSerializeDocument)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_frontmatter",
		Description: "Check frontmatter for values that cannot be written and warn about empty titles or unrecognized dates.",
	}, a.handleValidateFrontmatter)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "open_project",
		Description: "Open a Hexo project. Later content and server tools work on it.",
	}, a.handleOpenProject)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "project_info",
		Description: "Describe the open project: root, site settings from _config.yml, content counts and whether the preview server runs.",
	}, a.handleProjectInfo)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_entities",
		Description: "List posts, pages or drafts, newest first, without bodies. Supports pagination with offset/limit.",
	}, a.handleListEntities)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_entity",
		Description: "Read a post, page or draft with its frontmatter, body, timestamps and preview URL.",
	}, a.handleGetEntity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "save_entity",
		Description: "Replace the frontmatter and body of an existing post, page or draft.",
	}, a.handleSaveEntity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_entity",
		Description: "Create an empty post, page or draft. The file name is a slug of the title; fails if it exists.",
	}, a.handleCreateEntity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_entity",
		Description: "Delete a post, page or draft. Requires confirm='yes' for safety.",
	}, a.handleDeleteEntity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "publish_draft",
		Description: "Move a draft into the posts directory, dating it now if it has no date.",
	}, a.handlePublishDraft)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "render_entity",
		Description: "Render the markdown body of a post, page or draft to HTML.",
	}, a.handleRenderEntity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search",
		Description: "Search titles, tags, categories and bodies of posts, pages and drafts. Supports regex and case-sensitive search. Returns body matches with line numbers and context.",
	}, a.handleSearch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "taxonomy",
		Description: "List all tags and categories with usage counts and the entities using them.",
	}, a.handleTaxonomy)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_images",
		Description: "List images in source/images with their URL and the entities referencing them.",
	}, a.handleListImages)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "copy_image",
		Description: "Copy an image file into source/images, renaming it if the name is taken.",
	}, a.handleCopyImage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_image",
		Description: "Delete an image from source/images. Refuses images still referenced by content unless force=true.",
	}, a.handleDeleteImage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "server_start",
		Description: "Start the hexo preview server for a project. Fails if one is already running for it.",
	}, a.handleServerStart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "server_stop",
		Description: "Stop a running hexo preview server.",
	}, a.handleServerStop)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "server_status",
		Description: "List running preview servers with their PID, uptime and recent output.",
	}, a.handleServerStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_generator",
		Description: "Run a one-shot hexo command such as generate or clean and return its output and exit code. A non-zero exit is reported in the result, not as a tool error.",
	}, a.handleRunGenerator)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_app_config",
		Description: "Read the hex-tool application configuration.",
	}, a.handleGetAppConfig)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "save_app_config",
		Description: "Replace the hex-tool application configuration. Generator settings apply after restart.",
	}, a.handleSaveAppConfig)
}
