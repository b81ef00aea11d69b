package core

import (
	"context"
	"errors"
	"fmt"

	"deepcopy/pkg/domain"
)

// Duplicator deep-copies a record and every record reachable from it through
// duplicable relationships, rewriting foreign keys so the copies reference
// each other instead of the originals.
type Duplicator struct {
	schema domain.Schema
	logger Logger
}

// NewDuplicator constructs a duplicator over the given schema. A nil logger
// discards log output.
func NewDuplicator(schema domain.Schema, logger Logger) *Duplicator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Duplicator{schema: schema, logger: logger}
}

// Duplicate copies source and its descendants through graph.
//
// The returned Duplication lists every copy, root first, in pre-order. Under
// FailureSkipBranch a copy that fails to persist drops its subtree and the
// failures are returned as a *domain.PartialDuplicationError next to the
// partial result. Unresolvable relationships, cycles, cancellation and
// FailureAbort end the traversal with the error that stopped it.
func (d *Duplicator) Duplicate(ctx context.Context, graph domain.RecordGraph, source domain.Record, opts domain.DuplicateOptions) (domain.Duplication, error) {
	if graph == nil {
		return domain.Duplication{}, errors.New("duplicate: nil record graph")
	}
	if !source.Persisted() {
		return domain.Duplication{}, fmt.Errorf("duplicate: source %s has no identifier", source.Type)
	}
	run := &duplication{
		ctx:      ctx,
		schema:   d.schema,
		graph:    graph,
		logger:   d.logger,
		validate: opts.Validate,
		policy:   opts.Policy(),
		remap:    &remapTable{},
		open:     make(map[domain.RecordRef]struct{}),
	}
	err := run.visit(source, frame{overrides: opts.AttributeOverrides, include: opts.Include, exclude: opts.Exclude})
	if err != nil {
		return run.result, err
	}
	if len(run.result.Failures) > 0 {
		return run.result, &domain.PartialDuplicationError{Failures: run.result.Failures}
	}
	return run.result, nil
}

// frame carries the options one visit receives. Only the root frame carries
// explicit overrides and filters; descendants inherit nothing but the remap table.
type frame struct {
	overrides domain.Attributes
	include   []string
	exclude   []string
	depth     int
}

// duplication is the state shared by every visit of one Duplicate call.
type duplication struct {
	ctx      context.Context
	schema   domain.Schema
	graph    domain.RecordGraph
	logger   Logger
	validate bool
	policy   domain.FailurePolicy
	remap    *remapTable
	path     []domain.RecordRef
	open     map[domain.RecordRef]struct{}
	result   domain.Duplication
}

func (r *duplication) visit(source domain.Record, f frame) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	ref := source.Ref()
	if _, cyclic := r.open[ref]; cyclic {
		path := append(append([]domain.RecordRef(nil), r.path...), ref)
		return &domain.CyclicGraphError{Path: path}
	}
	r.open[ref] = struct{}{}
	r.path = append(r.path, ref)
	defer func() {
		delete(r.open, ref)
		r.path = r.path[:len(r.path)-1]
	}()

	relations := orderRelationships(classifyRelationships(r.schema, source.Type, f.include, f.exclude))

	cp := r.graph.Clone(source)
	cp.ID = ""
	defaults, _ := r.schema.DefaultOverridesFor(source.Type)
	if ignored := applyAttributes(r.schema, &cp, mergeAttributes(defaults, f.overrides, r.remap.attributes())); len(ignored) > 0 {
		r.logger.Debug("ignored overrides without writable attribute", "type", source.Type, "keys", ignored)
	}

	if err := r.persist(ref, &cp); err != nil {
		if r.policy == domain.FailureAbort {
			return err
		}
		r.result.Failures = append(r.result.Failures, err)
		r.logger.Warn("skipping branch after failed copy", "source", ref.String(), "depth", f.depth, "error", err)
		return nil
	}

	field := r.schema.TypeFieldName(source.Type)
	r.remap.put(field, cp.ID)
	defer r.remap.remove(field)

	r.result.Entries = append(r.result.Entries, domain.DuplicationEntry{Source: ref, Clone: cp, Depth: f.depth})
	r.logger.Debug("duplicated record", "source", ref.String(), "clone", cp.Key(), "depth", f.depth)

	for _, rel := range relations {
		related, err := r.graph.RelatedRecords(r.ctx, source, rel.Name)
		if err != nil {
			var unresolved *domain.UnresolvedRelationshipError
			if errors.As(err, &unresolved) {
				return err
			}
			return &domain.UnresolvedRelationshipError{Record: ref, Relationship: rel.Name, Err: err}
		}
		for _, child := range related {
			if err := r.visit(child, frame{depth: f.depth + 1}); err != nil {
				return err
			}
		}
	}
	return nil
}

// persist saves cp and insists on an identifier; a copy without one would
// leave descendants pointing at nothing.
func (r *duplication) persist(source domain.RecordRef, cp *domain.Record) error {
	if err := r.graph.Persist(r.ctx, cp, r.validate); err != nil {
		return &domain.PersistenceError{Source: source, Type: cp.Type, Err: err}
	}
	if !cp.Persisted() {
		return &domain.PersistenceError{Source: source, Type: cp.Type, Err: errors.New("no identifier assigned")}
	}
	return nil
}
