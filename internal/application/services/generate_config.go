package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/scala-isabelle/devscripts/internal/application/dto"
	apperrors "github.com/scala-isabelle/devscripts/internal/application/errors"
	"github.com/scala-isabelle/devscripts/internal/application/ports"
	"github.com/scala-isabelle/devscripts/internal/domain/catalog"
	"github.com/scala-isabelle/devscripts/internal/domain/services"
)

// GenerateConfigUseCase regenerates the CI configuration from the profile catalog.
// This is a pure application layer component that depends only on ports.
type GenerateConfigUseCase struct {
	repo   ports.Repository
	loader ports.CatalogLoader
	picker ports.ProfilePicker
	intn   func(n int) int
	out    io.Writer
	logger *slog.Logger
}

// NewGenerateConfigUseCase creates a new generate config use case.
// picker may be nil when interactive selection is not available.
func NewGenerateConfigUseCase(
	repo ports.Repository,
	loader ports.CatalogLoader,
	picker ports.ProfilePicker,
	out io.Writer,
	logger *slog.Logger,
) *GenerateConfigUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if out == nil {
		out = os.Stdout
	}

	return &GenerateConfigUseCase{
		repo:   repo,
		loader: loader,
		picker: picker,
		intn:   rand.IntN,
		out:    out,
		logger: logger,
	}
}

// WithRandomSource replaces the source used for "random" picks.
func (uc *GenerateConfigUseCase) WithRandomSource(intn func(n int) int) *GenerateConfigUseCase {
	uc.intn = intn
	return uc
}

// Execute runs the complete generation workflow.
func (uc *GenerateConfigUseCase) Execute(ctx context.Context, req dto.GenerateConfigRequest) (*dto.GenerateConfigResponse, error) {
	resp := &dto.GenerateConfigResponse{
		OutputPath: uc.abs(req.Paths.OutputPath),
	}

	// 1. Advisory only
	resp.HookInstalled = uc.WarnAboutCommitHook(req.Options.HookMarker)

	// 2. Gate
	proceed, err := uc.shouldUpdate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !proceed {
		uc.logger.Debug("configuration is up to date, skipping")
		resp.Skipped = true
		return resp, nil
	}

	// 3. Load and choose
	cat, err := uc.loader.LoadCatalog(uc.abs(req.Paths.CatalogPath))
	if err != nil {
		return nil, apperrors.NewConfigurationError("catalog", "failed to load catalog", err)
	}

	selection, err := uc.chooseConfig(ctx, cat, req.Options)
	if err != nil {
		return nil, err
	}
	resp.Profile = selection.Name
	_, _ = fmt.Fprintf(uc.out, "Picking configuration %s for Circle CI\n", selection.Name)

	// 4. Render and write
	resolver := services.NewResolver(selection.Profile, cat.Defaults, map[string]services.BuiltinDefault{
		services.BaseRevisionKey: func() (string, error) {
			return uc.repo.HeadRevision(ctx)
		},
	})
	if err := uc.makeConfig(req.Paths, resolver); err != nil {
		return nil, err
	}

	// 5. Stage
	if err := uc.repo.Stage(ctx, uc.repoPath(req.Paths.OutputPath)); err != nil {
		return nil, apperrors.NewStagingError(req.Paths.OutputPath, err)
	}

	uc.logger.Info("configuration generated",
		"profile", selection.Name,
		"output", req.Paths.OutputPath)

	return resp, nil
}

// shouldUpdate gathers repository state only when the flags don't decide on their own.
func (uc *GenerateConfigUseCase) shouldUpdate(ctx context.Context, req dto.GenerateConfigRequest) (bool, error) {
	in := UpdateInputs{
		Force:        req.Options.Force || req.Options.Interactive,
		PickSupplied: req.Options.Pick != "",
	}
	if in.Force || in.PickSupplied {
		return ShouldUpdate(in), nil
	}

	dirty, err := uc.repo.IsDirty(ctx)
	if err != nil {
		return false, fmt.Errorf("checking working tree: %w", err)
	}
	in.Dirty = dirty

	if dirty {
		pending, err := uc.repo.HasPendingDiff(ctx, uc.repoPath(req.Paths.OutputPath))
		if err != nil {
			return false, fmt.Errorf("checking %s: %w", req.Paths.OutputPath, err)
		}
		in.OutputHasPendingDiff = pending
	}

	uc.logger.Debug("update gate",
		"dirty", in.Dirty,
		"output_pending_diff", in.OutputHasPendingDiff)

	return ShouldUpdate(in), nil
}

func (uc *GenerateConfigUseCase) chooseConfig(ctx context.Context, cat *catalog.Catalog, opts dto.GenerateOptions) (*catalog.Selection, error) {
	override := opts.Pick
	if override == "" && opts.Interactive {
		if uc.picker == nil {
			return nil, fmt.Errorf("interactive selection is not available")
		}
		picked, err := uc.picker.PickProfile(ctx, cat.ProfileNames())
		if err != nil {
			return nil, fmt.Errorf("selecting configuration: %w", err)
		}
		override = picked
	}

	selection, err := cat.Choose(override, uc.intn)
	if err != nil {
		return nil, fmt.Errorf("choosing configuration: %w", err)
	}
	return selection, nil
}

// makeConfig renders the template completely before touching the output,
// so a failing key leaves the previous file as it was.
func (uc *GenerateConfigUseCase) makeConfig(paths dto.GeneratePaths, resolver *services.Resolver) error {
	//nolint:gosec // G304: template path comes from the tool's own configuration
	template, err := os.ReadFile(uc.abs(paths.TemplatePath))
	if err != nil {
		return apperrors.NewConfigurationError("template", "failed to read template", err)
	}

	rendered, err := services.Render(string(template), resolver.Get)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", paths.TemplatePath, err)
	}

	content := services.Header(filepath.Base(paths.TemplatePath)) + rendered

	//nolint:gosec // G306: generated CI configuration is meant to be world-readable
	if err := os.WriteFile(uc.abs(paths.OutputPath), []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", paths.OutputPath, err)
	}
	return nil
}

// WarnAboutCommitHook prints an advisory when the pre-commit hook does not
// invoke the generator. It never fails; it reports whether the hook is in place.
func (uc *GenerateConfigUseCase) WarnAboutCommitHook(marker string) bool {
	hookPath := filepath.Join(uc.repo.CommonDir(), "hooks", "pre-commit")

	//nolint:gosec // G304: hook path is derived from the repository layout
	content, err := os.ReadFile(hookPath)
	if err == nil && strings.Contains(string(content), marker) {
		return true
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		uc.logger.Debug("failed to read pre-commit hook", "path", hookPath, "error", err)
	}

	_, _ = fmt.Fprintf(uc.out, "*** Add %s to %s ***\n", marker, hookPath)
	return false
}

func (uc *GenerateConfigUseCase) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(uc.repo.Root(), path)
}

// repoPath converts path to the slash-separated, root-relative form git uses.
func (uc *GenerateConfigUseCase) repoPath(path string) string {
	if filepath.IsAbs(path) {
		if rel, err := filepath.Rel(uc.repo.Root(), path); err == nil {
			path = rel
		}
	}
	return filepath.ToSlash(filepath.Clean(path))
}
