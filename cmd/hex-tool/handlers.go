package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhamdeew/hex-tool/internal/config"
	"github.com/rhamdeew/hex-tool/internal/content"
	"github.com/rhamdeew/hex-tool/internal/frontmatter"
	"github.com/rhamdeew/hex-tool/internal/markdown"
	"github.com/rhamdeew/hex-tool/internal/search"
	"github.com/rhamdeew/hex-tool/internal/supervisor"
)

func fail[T any](err error) (*mcp.CallToolResult, T, error) {
	var zero T
	return &mcp.CallToolResult{IsError: true}, zero, err
}

func (a *app) handleParseDocument(ctx context.Context, req *mcp.CallToolRequest, input ParseDocumentInput) (*mcp.CallToolResult, ParseDocumentOutput, error) {
	doc, err := frontmatter.Parse(input.Content)
	if err != nil {
		return fail[ParseDocumentOutput](err)
	}
	return nil, ParseDocumentOutput{
		Frontmatter: toFrontmatterData(doc.Frontmatter),
		Body:        doc.Body,
	}, nil
}

func (a *app) handleSerializeDocument(ctx context.Context, req *mcp.CallToolRequest, input SerializeDocumentInput) (*mcp.CallToolResult, SerializeDocumentOutput, error) {
	out, err := frontmatter.Serialize(frontmatter.Document{
		Frontmatter: fromFrontmatterData(input.Frontmatter, nil),
		Body:        input.Body,
	})
	if err != nil {
		return fail[SerializeDocumentOutput](err)
	}
	return nil, SerializeDocumentOutput{Content: out}, nil
}

func (a *app) handleValidateFrontmatter(ctx context.Context, req *mcp.CallToolRequest, input ValidateFrontmatterInput) (*mcp.CallToolResult, frontmatter.ValidationResult, error) {
	return nil, frontmatter.Validate(fromFrontmatterData(input.Frontmatter, nil)), nil
}

func (a *app) handleOpenProject(ctx context.Context, req *mcp.CallToolRequest, input OpenProjectInput) (*mcp.CallToolResult, ProjectInfoOutput, error) {
	path := strings.TrimSpace(input.Path)
	if path == "" {
		return fail[ProjectInfoOutput](errors.New("path is required"))
	}
	ws, err := a.openProject(path)
	if err != nil {
		return fail[ProjectInfoOutput](err)
	}
	return nil, a.projectInfo(ws), nil
}

func (a *app) handleProjectInfo(ctx context.Context, req *mcp.CallToolRequest, input ProjectInfoInput) (*mcp.CallToolResult, ProjectInfoOutput, error) {
	ws, err := a.workspace()
	if err != nil {
		return fail[ProjectInfoOutput](err)
	}
	return nil, a.projectInfo(ws), nil
}

func (a *app) projectInfo(ws *workspace) ProjectInfoOutput {
	counts := make(map[string]int, len(content.Kinds))
	for _, kind := range content.Kinds {
		entities, err := ws.store.List(kind)
		if err != nil {
			a.logger.Warn("counting entities", "kind", kind, "error", err)
			continue
		}
		counts[string(kind)] = len(entities)
	}
	return ProjectInfoOutput{
		Root:          ws.project.Root(),
		Site:          ws.site,
		Counts:        counts,
		ServerRunning: a.supervisor.IsRunning(ws.project.Root()),
	}
}

func (a *app) handleListEntities(ctx context.Context, req *mcp.CallToolRequest, input ListEntitiesInput) (*mcp.CallToolResult, ListEntitiesOutput, error) {
	ws, kind, err := a.kindInProject(input.Kind)
	if err != nil {
		return fail[ListEntitiesOutput](err)
	}
	entities, err := ws.store.List(kind)
	if err != nil {
		return fail[ListEntitiesOutput](err)
	}

	total := len(entities)
	offset := min(max(input.Offset, 0), total)
	end := total
	if input.Limit > 0 {
		end = min(offset+input.Limit, total)
	}

	out := ListEntitiesOutput{
		Entities: make([]EntitySummary, 0, end-offset),
		Total:    total,
		HasMore:  end < total,
	}
	for _, e := range entities[offset:end] {
		out.Entities = append(out.Entities, toEntitySummary(e))
	}
	return nil, out, nil
}

func (a *app) handleGetEntity(ctx context.Context, req *mcp.CallToolRequest, input EntityRef) (*mcp.CallToolResult, EntityOutput, error) {
	ws, kind, err := a.kindInProject(input.Kind)
	if err != nil {
		return fail[EntityOutput](err)
	}
	e, err := ws.store.Get(kind, strings.TrimSpace(input.ID))
	if err != nil {
		return fail[EntityOutput](err)
	}
	return nil, a.entityOutput(ws, e), nil
}

func (a *app) handleSaveEntity(ctx context.Context, req *mcp.CallToolRequest, input SaveEntityInput) (*mcp.CallToolResult, EntityOutput, error) {
	ws, kind, err := a.kindInProject(input.Kind)
	if err != nil {
		return fail[EntityOutput](err)
	}
	current, err := ws.store.Get(kind, strings.TrimSpace(input.ID))
	if err != nil {
		return fail[EntityOutput](err)
	}

	fm := fromFrontmatterData(input.Frontmatter, current.Frontmatter.Custom)
	if result := frontmatter.Validate(fm); !result.IsValid {
		return fail[EntityOutput](errors.Mark(
			errors.Newf("invalid frontmatter: %s", strings.Join(result.Errors, "; ")),
			frontmatter.ErrInvalidMetadata))
	}

	saved, err := ws.store.Save(current.Edit(fm, input.Body))
	if err != nil {
		return fail[EntityOutput](err)
	}
	return nil, a.entityOutput(ws, saved), nil
}

func (a *app) handleCreateEntity(ctx context.Context, req *mcp.CallToolRequest, input CreateEntityInput) (*mcp.CallToolResult, EntityOutput, error) {
	ws, kind, err := a.kindInProject(input.Kind)
	if err != nil {
		return fail[EntityOutput](err)
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return fail[EntityOutput](errors.New("title is required"))
	}
	e, err := ws.store.Create(kind, title)
	if err != nil {
		return fail[EntityOutput](err)
	}
	return nil, a.entityOutput(ws, e), nil
}

func (a *app) handleDeleteEntity(ctx context.Context, req *mcp.CallToolRequest, input DeleteEntityInput) (*mcp.CallToolResult, DeleteOutput, error) {
	id := strings.TrimSpace(input.ID)
	if input.Confirm != "yes" {
		return &mcp.CallToolResult{IsError: true}, DeleteOutput{Success: false, ID: id},
			errors.New("deletion not confirmed: set confirm='yes' to proceed")
	}
	ws, kind, err := a.kindInProject(input.Kind)
	if err != nil {
		return fail[DeleteOutput](err)
	}
	if err := ws.store.Delete(kind, id); err != nil {
		return &mcp.CallToolResult{IsError: true}, DeleteOutput{Success: false, ID: id}, err
	}
	return nil, DeleteOutput{Success: true, ID: id}, nil
}

func (a *app) handlePublishDraft(ctx context.Context, req *mcp.CallToolRequest, input PublishDraftInput) (*mcp.CallToolResult, EntityOutput, error) {
	ws, err := a.workspace()
	if err != nil {
		return fail[EntityOutput](err)
	}
	post, err := ws.store.Publish(strings.TrimSpace(input.ID))
	if err != nil {
		return fail[EntityOutput](err)
	}
	return nil, a.entityOutput(ws, post), nil
}

func (a *app) handleRenderEntity(ctx context.Context, req *mcp.CallToolRequest, input EntityRef) (*mcp.CallToolResult, RenderEntityOutput, error) {
	ws, kind, err := a.kindInProject(input.Kind)
	if err != nil {
		return fail[RenderEntityOutput](err)
	}
	e, err := ws.store.Get(kind, strings.TrimSpace(input.ID))
	if err != nil {
		return fail[RenderEntityOutput](err)
	}
	html, err := markdown.Render(e.Content)
	if err != nil {
		return fail[RenderEntityOutput](err)
	}
	return nil, RenderEntityOutput{
		ID:         e.ID,
		HTML:       html,
		PreviewURL: ws.previewURL(e, a.config.Get().Generator.ServerPort),
	}, nil
}

func (a *app) handleSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	ws, err := a.workspace()
	if err != nil {
		return fail[SearchOutput](err)
	}
	kinds, err := parseKinds(input.Kinds)
	if err != nil {
		return fail[SearchOutput](err)
	}

	params := search.Params{
		Query:         strings.TrimSpace(input.Query),
		Kinds:         kinds,
		UseRegex:      input.UseRegex,
		CaseSensitive: input.CaseSensitive,
		ContextLines:  input.ContextLines,
		Limit:         input.Limit,
		Offset:        input.Offset,
	}
	results, total, err := ws.search.Search(ctx, params)
	if err != nil {
		return fail[SearchOutput](err)
	}

	return nil, SearchOutput{
		Results: results,
		Total:   total,
		HasMore: max(params.Offset, 0)+len(results) < total,
	}, nil
}

func (a *app) handleTaxonomy(ctx context.Context, req *mcp.CallToolRequest, input TaxonomyInput) (*mcp.CallToolResult, search.Taxonomy, error) {
	ws, err := a.workspace()
	if err != nil {
		return fail[search.Taxonomy](err)
	}
	kinds, err := parseKinds(input.Kinds)
	if err != nil {
		return fail[search.Taxonomy](err)
	}
	tax, err := ws.search.Taxonomy(kinds...)
	if err != nil {
		return fail[search.Taxonomy](err)
	}
	return nil, tax, nil
}

func (a *app) handleListImages(ctx context.Context, req *mcp.CallToolRequest, input ListImagesInput) (*mcp.CallToolResult, ListImagesOutput, error) {
	ws, err := a.workspace()
	if err != nil {
		return fail[ListImagesOutput](err)
	}
	images, err := ws.store.ListImages()
	if err != nil {
		return fail[ListImagesOutput](err)
	}
	return nil, ListImagesOutput{Images: images}, nil
}

func (a *app) handleCopyImage(ctx context.Context, req *mcp.CallToolRequest, input CopyImageInput) (*mcp.CallToolResult, content.Image, error) {
	ws, err := a.workspace()
	if err != nil {
		return fail[content.Image](err)
	}
	img, err := ws.store.CopyImage(strings.TrimSpace(input.Source))
	if err != nil {
		return fail[content.Image](err)
	}
	return nil, img, nil
}

func (a *app) handleDeleteImage(ctx context.Context, req *mcp.CallToolRequest, input DeleteImageInput) (*mcp.CallToolResult, DeleteImageOutput, error) {
	name := strings.TrimSpace(input.Name)
	ws, err := a.workspace()
	if err != nil {
		return fail[DeleteImageOutput](err)
	}
	if err := ws.store.DeleteImage(name, input.Force); err != nil {
		return &mcp.CallToolResult{IsError: true}, DeleteImageOutput{Success: false, Name: name}, err
	}
	return nil, DeleteImageOutput{Success: true, Name: name}, nil
}

func (a *app) handleServerStart(ctx context.Context, req *mcp.CallToolRequest, input ServerInput) (*mcp.CallToolResult, ServerOutput, error) {
	root, err := a.projectRoot(strings.TrimSpace(input.ProjectPath))
	if err != nil {
		return fail[ServerOutput](err)
	}
	id, err := a.supervisor.Start(ctx, root)
	if err != nil {
		return fail[ServerOutput](err)
	}
	return nil, a.serverOutput(id), nil
}

func (a *app) handleServerStop(ctx context.Context, req *mcp.CallToolRequest, input ServerStopInput) (*mcp.CallToolResult, ServerStopOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		root, err := a.projectRoot("")
		if err != nil {
			return fail[ServerStopOutput](err)
		}
		id = root
	} else if abs, err := filepath.Abs(id); err == nil {
		// Servers are keyed by their absolute, cleaned project root.
		id = abs
	}
	if err := a.supervisor.Stop(id); err != nil {
		return &mcp.CallToolResult{IsError: true}, ServerStopOutput{Success: false, ID: id}, err
	}
	return nil, ServerStopOutput{Success: true, ID: id}, nil
}

func (a *app) handleServerStatus(ctx context.Context, req *mcp.CallToolRequest, input ServerInput) (*mcp.CallToolResult, ServerStatusOutput, error) {
	if strings.TrimSpace(input.ProjectPath) == "" {
		return nil, ServerStatusOutput{Servers: a.supervisor.List()}, nil
	}
	root, err := a.projectRoot(strings.TrimSpace(input.ProjectPath))
	if err != nil {
		return fail[ServerStatusOutput](err)
	}
	out := ServerStatusOutput{Servers: []supervisor.Status{}}
	if st, ok := a.supervisor.Status(root); ok {
		out.Servers = append(out.Servers, st)
	}
	return nil, out, nil
}

func (a *app) handleRunGenerator(ctx context.Context, req *mcp.CallToolRequest, input RunGeneratorInput) (*mcp.CallToolResult, supervisor.Result, error) {
	root, err := a.projectRoot(strings.TrimSpace(input.ProjectPath))
	if err != nil {
		return fail[supervisor.Result](err)
	}
	res, err := a.supervisor.Run(ctx, root, input.Verb)
	switch {
	case errors.Is(err, supervisor.ErrTimedOut):
		// Keep the partial output as structured content.
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		}, res, nil
	case err != nil:
		return fail[supervisor.Result](err)
	}
	return nil, res, nil
}

func (a *app) handleGetAppConfig(ctx context.Context, req *mcp.CallToolRequest, input GetAppConfigInput) (*mcp.CallToolResult, config.Config, error) {
	return nil, a.config.Get(), nil
}

func (a *app) handleSaveAppConfig(ctx context.Context, req *mcp.CallToolRequest, input SaveAppConfigInput) (*mcp.CallToolResult, config.Config, error) {
	if err := input.Config.Validate(); err != nil {
		return fail[config.Config](err)
	}
	if err := a.config.Save(input.Config); err != nil {
		return fail[config.Config](err)
	}
	return nil, a.config.Get(), nil
}

func (a *app) kindInProject(name string) (*workspace, content.Kind, error) {
	kind, err := content.ParseKind(name)
	if err != nil {
		return nil, "", err
	}
	ws, err := a.workspace()
	if err != nil {
		return nil, "", err
	}
	return ws, kind, nil
}

func (a *app) entityOutput(ws *workspace, e content.Entity) EntityOutput {
	return toEntityOutput(e, ws.previewURL(e, a.config.Get().Generator.ServerPort))
}

func (a *app) serverOutput(id supervisor.ServerID) ServerOutput {
	out := ServerOutput{ID: id}
	if st, ok := a.supervisor.Status(id); ok {
		out.Running = true
		out.Status = &st
		port := a.config.Get().Generator.ServerPort
		if port <= 0 {
			port = defaultServerPort
		}
		if ws, err := a.workspace(); err == nil && ws.project.Root() == id {
			out.URL = ws.previewBase(port)
		}
	}
	return out
}

func parseKinds(names []string) ([]content.Kind, error) {
	kinds := make([]content.Kind, 0, len(names))
	for _, name := range names {
		kind, err := content.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
