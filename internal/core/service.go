package core

import (
	"context"
	"errors"
	"fmt"

	"deepcopy/internal/infra/persistence/memory"
	"deepcopy/pkg/domain"
)

// Service exposes transactional record operations and deep duplication on
// top of a persistent store. Every mutating operation is traced, measured,
// audited and logged through the configured collaborators.
type Service struct {
	store      domain.PersistentStore
	duplicator *Duplicator
	opts       serviceOptions
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...ServiceOption) *Service {
	cfg := defaultServiceOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Service{
		store:      store,
		duplicator: NewDuplicator(store.Schema(), cfg.logger),
		opts:       cfg,
	}
}

// NewInMemoryService creates a service and in-memory store guarded by the
// default rules engine for schema.
func NewInMemoryService(schema memory.Schema, opts ...ServiceOption) *Service {
	var rulesSchema domain.Schema
	if schema != nil {
		rulesSchema = schema
	}
	store := memory.NewStore(schema, NewDefaultRulesEngine(rulesSchema))
	return NewService(store, opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// Schema returns the schema the store resolves relationships with.
func (s *Service) Schema() domain.Schema {
	return s.store.Schema()
}

// validatingStore is implemented by stores that can check a record against
// its declared validation rules.
type validatingStore interface {
	Validate(r domain.Record) error
}

func (s *Service) validate(r domain.Record) error {
	if v, ok := s.store.(validatingStore); ok {
		return v.Validate(r)
	}
	return nil
}

// outcome is what an operation reports back to run for auditing.
type outcome struct {
	id     string
	clones int
}

func (s *Service) run(ctx context.Context, op string, t domain.RecordType, id string, fn func(context.Context) (outcome, error)) error {
	ctx, span := s.opts.tracer.Start(ctx, op)
	started := s.opts.clock.Now()
	out, err := fn(ctx)
	elapsed := s.opts.clock.Now().Sub(started)
	span.End(err)
	s.opts.metrics.Observe(ctx, op, err == nil, elapsed)

	if out.id == "" {
		out.id = id
	}
	entry := AuditEntry{
		Operation:  op,
		Type:       t,
		RecordID:   out.id,
		Status:     AuditStatusSuccess,
		Clones:     out.clones,
		Duration:   elapsed,
		OccurredAt: started,
	}
	var partial *domain.PartialDuplicationError
	switch {
	case err == nil:
		s.opts.logger.Debug(op, "type", t, "id", out.id, "duration", elapsed)
	case errors.As(err, &partial):
		entry.Status = AuditStatusPartial
		entry.Error = err.Error()
		s.opts.logger.Warn(op+" incomplete", "type", t, "id", out.id, "failures", len(partial.Failures))
	default:
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		s.opts.logger.Error(op+" failed", "type", t, "id", out.id, "error", err)
	}
	s.opts.audit.Record(ctx, entry)
	return err
}

// CreateRecord validates and persists a new record.
func (s *Service) CreateRecord(ctx context.Context, record domain.Record) (domain.Record, Result, error) {
	var (
		created domain.Record
		res     Result
	)
	err := s.run(ctx, "create_record", record.Type, record.ID, func(ctx context.Context) (outcome, error) {
		if err := s.validate(record); err != nil {
			return outcome{}, err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			created, err = tx.Create(record)
			return err
		})
		return outcome{id: created.ID}, err
	})
	return created, res, err
}

// UpdateRecord applies mutator to the stored record of type t.
func (s *Service) UpdateRecord(ctx context.Context, t domain.RecordType, id string, mutator func(*domain.Record) error) (domain.Record, Result, error) {
	var (
		updated domain.Record
		res     Result
	)
	err := s.run(ctx, "update_record", t, id, func(ctx context.Context) (outcome, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.Update(t, id, func(r *domain.Record) error {
				if err := mutator(r); err != nil {
					return err
				}
				return s.validate(*r)
			})
			return err
		})
		return outcome{}, err
	})
	return updated, res, err
}

// DeleteRecord removes the record of type t with the given id.
func (s *Service) DeleteRecord(ctx context.Context, t domain.RecordType, id string) (Result, error) {
	var res Result
	err := s.run(ctx, "delete_record", t, id, func(ctx context.Context) (outcome, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.Delete(t, id)
		})
		return outcome{}, err
	})
	return res, err
}

// GetRecord returns a committed record.
func (s *Service) GetRecord(t domain.RecordType, id string) (domain.Record, error) {
	r, ok := s.store.Get(t, id)
	if !ok {
		return domain.Record{}, domain.ErrNotFound{Type: t, ID: id}
	}
	return r, nil
}

// ListRecords returns every committed record of t in insertion order.
func (s *Service) ListRecords(t domain.RecordType) []domain.Record {
	return s.store.List(t)
}

// ImportRecords creates records in a single transaction, keeping any IDs they
// carry so imported foreign keys stay valid. Nothing is stored when any record
// fails validation or the rules block the commit.
func (s *Service) ImportRecords(ctx context.Context, records []domain.Record) ([]domain.Record, Result, error) {
	var (
		created []domain.Record
		res     Result
	)
	err := s.run(ctx, "import_records", "", "", func(ctx context.Context) (outcome, error) {
		for i, r := range records {
			if err := s.validate(r); err != nil {
				return outcome{}, fmt.Errorf("record %d: %w", i, err)
			}
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			created = make([]domain.Record, 0, len(records))
			for i, r := range records {
				if err := ctx.Err(); err != nil {
					return err
				}
				saved, err := tx.Create(r)
				if err != nil {
					return fmt.Errorf("record %d: %w", i, err)
				}
				created = append(created, saved)
			}
			return nil
		})
		if err != nil {
			created = nil
		}
		return outcome{clones: len(created)}, err
	})
	return created, res, err
}

// DuplicateRecord deep-copies the record of type t with the given id inside a
// single store transaction.
//
// Errors that stop the traversal, including any failure under FailureAbort,
// roll the transaction back and return an empty Duplication. A skip-branch
// duplication with failures commits the copies it made and returns them
// alongside a *domain.PartialDuplicationError. When a manifest store is
// configured a manifest of the committed copies is archived.
func (s *Service) DuplicateRecord(ctx context.Context, t domain.RecordType, id string, opts domain.DuplicateOptions) (domain.Duplication, Result, error) {
	var (
		dup domain.Duplication
		res Result
	)
	err := s.run(ctx, "duplicate_record", t, id, func(ctx context.Context) (outcome, error) {
		var dupErr error
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			source, ok := tx.Find(t, id)
			if !ok {
				return domain.ErrNotFound{Type: t, ID: id}
			}
			dup, dupErr = s.duplicator.Duplicate(ctx, tx, source, opts)
			var partial *domain.PartialDuplicationError
			if dupErr != nil && !errors.As(dupErr, &partial) {
				return dupErr
			}
			return nil
		})
		if err != nil {
			dup = domain.Duplication{}
			return outcome{}, err
		}
		s.archive(ctx, domain.RecordRef{Type: t, ID: id}, dup)
		return outcome{clones: len(dup.Entries)}, dupErr
	})
	return dup, res, err
}
