// Package build orchestrates the Brandforge pipeline: resolve the token
// layer stack, then apply patch specs to the base OOXML package inside a
// transaction, and write the output archive.
//
// Everything a build needs arrives as explicit request parameters; there is
// no process-wide state, so independent builds can run concurrently.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/brandforge/brandforge/ooxml"
	"github.com/brandforge/brandforge/patch"
	"github.com/brandforge/brandforge/token"
)

// LayerFile names one token layer document, in precedence order within a
// request.
type LayerFile struct {
	Name string
	Path string
}

// Request carries every input of one build invocation.
type Request struct {
	// Name labels the build in logs and results (e.g. the product or org).
	Name string

	// Layers are the token layer files, base first.
	Layers []LayerFile

	// Tokens optionally carries an already-resolved token map. When set,
	// Layers is ignored; several requests may share one map, it is never
	// mutated.
	Tokens map[string]any

	// Patches are the patch spec files, applied in order.
	Patches []string

	// Base is the input OOXML package path.
	Base string

	// Output is the destination package path.
	Output string
}

// Result reports one completed build.
type Result struct {
	// ID uniquely identifies this build invocation.
	ID uuid.UUID

	// Name echoes the request name.
	Name string

	// Tokens is the resolved token map the patch engine consumed.
	Tokens map[string]any

	// Patch aggregates per-operation outcomes.
	Patch *patch.Result

	// Output is the written package path.
	Output string

	// Duration is the wall-clock build time.
	Duration time.Duration
}

// Builder runs the token resolver and patch engine as one pipeline.
type Builder struct {
	Logger *slog.Logger
	Policy patch.Policy
}

// NewBuilder creates a Builder with the given failure policy.
func NewBuilder(policy patch.Policy, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == "" {
		policy = patch.PolicyStrict
	}
	return &Builder{Logger: logger, Policy: policy}
}

// ResolveTokens runs only the resolver phase for a layer stack.
func (b *Builder) ResolveTokens(layers []LayerFile) (map[string]any, error) {
	stack := make([]token.Layer, 0, len(layers))
	for _, lf := range layers {
		layer, err := token.LoadLayerFile(lf.Name, lf.Path)
		if err != nil {
			return nil, err
		}
		stack = append(stack, layer)
	}
	resolved, err := token.ResolveLayers(stack)
	if err != nil {
		return nil, fmt.Errorf("resolve tokens: %w", err)
	}
	b.Logger.Debug("tokens resolved", slog.Int("count", len(resolved)))
	return resolved, nil
}

// Build runs the full pipeline for one request. Resolver failures abort
// before the patch engine runs; patch failures follow the builder's policy.
func (b *Builder) Build(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	id := uuid.New()
	logger := b.Logger.With(slog.String("build", req.Name), slog.String("id", id.String()))

	tokens := req.Tokens
	if tokens == nil {
		var err error
		tokens, err = b.ResolveTokens(req.Layers)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", req.Name, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pkg, err := ooxml.ReadFile(req.Base)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", req.Name, err)
	}
	if err := pkg.Validate(); err != nil {
		return nil, fmt.Errorf("build %s: %s: %w", req.Name, req.Base, err)
	}

	txn := patch.Begin(pkg, tokens, b.Policy, logger)
	for _, path := range req.Patches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		spec, err := patch.LoadSpecFile(path)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", req.Name, err)
		}
		if err := txn.Apply(spec); err != nil {
			return nil, fmt.Errorf("build %s: %s: %w", req.Name, path, err)
		}
	}

	res, err := txn.Commit()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", req.Name, err)
	}

	if err := pkg.WriteFile(req.Output); err != nil {
		return nil, fmt.Errorf("build %s: %w", req.Name, err)
	}

	logger.Info("build complete",
		slog.String("output", req.Output),
		slog.Int("applied", len(res.Applied)),
		slog.Int("failed", len(res.Failed)),
		slog.Duration("duration", time.Since(start)))

	return &Result{
		ID:       id,
		Name:     req.Name,
		Tokens:   tokens,
		Patch:    res,
		Output:   req.Output,
		Duration: time.Since(start),
	}, nil
}
