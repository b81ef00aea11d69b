// Package memory provides an in-memory implementation of the record store
// used for tests, ephemeral environments, and as the transactional core of the
// snapshotting SQL stores.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"deepcopy/pkg/domain"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var (
	_ domain.PersistentStore = (*Store)(nil)
	_ domain.Transaction     = (*transaction)(nil)
)

type (
	// Record aliases domain.Record for in-memory persistence operations.
	Record = domain.Record
	// RecordType aliases domain.RecordType.
	RecordType = domain.RecordType
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// Schema is the subset of the schema registry the store depends on.
type Schema interface {
	domain.Schema
	Known(t domain.RecordType) bool
	ValidationRules(t domain.RecordType) map[string]any
}

// ErrUnknownType is returned when a record's type is not registered.
var ErrUnknownType = errors.New("unknown record type")

type memoryState struct {
	records map[RecordType]map[string]Record
	order   map[RecordType][]string
}

// Snapshot captures a point-in-time clone of the store state. Records of each
// type are listed in insertion order.
type Snapshot struct {
	Records map[RecordType][]Record `json:"records"`
}

func newMemoryState() memoryState {
	return memoryState{
		records: make(map[RecordType]map[string]Record),
		order:   make(map[RecordType][]string),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for t, bucket := range s.records {
		cp := make(map[string]Record, len(bucket))
		for id, r := range bucket {
			cp[id] = domain.CloneRecord(r)
		}
		cloned.records[t] = cp
	}
	for t, ids := range s.order {
		cloned.order[t] = slices.Clone(ids)
	}
	return cloned
}

func (s *memoryState) put(r Record) {
	bucket, ok := s.records[r.Type]
	if !ok {
		bucket = make(map[string]Record)
		s.records[r.Type] = bucket
	}
	if _, exists := bucket[r.ID]; !exists {
		s.order[r.Type] = append(s.order[r.Type], r.ID)
	}
	bucket[r.ID] = domain.CloneRecord(r)
}

func (s *memoryState) remove(t RecordType, id string) {
	delete(s.records[t], id)
	s.order[t] = slices.DeleteFunc(s.order[t], func(v string) bool { return v == id })
}

func (s *memoryState) find(t RecordType, id string) (Record, bool) {
	r, ok := s.records[t][id]
	if !ok {
		return Record{}, false
	}
	return domain.CloneRecord(r), true
}

func (s *memoryState) list(t RecordType) []Record {
	ids := s.order[t]
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.CloneRecord(s.records[t][id]))
	}
	return out
}

func (s *memoryState) types() []RecordType {
	out := make([]RecordType, 0, len(s.records))
	for t := range s.records {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{Records: make(map[RecordType][]Record, len(state.records))}
	for _, t := range state.types() {
		s.Records[t] = state.list(t)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for t, records := range s.Records {
		state.records[t] = make(map[string]Record, len(records))
		state.order[t] = make([]string, 0, len(records))
		for _, r := range records {
			if r.ID == "" {
				continue
			}
			r.Type = t
			if r.Attributes == nil {
				r.Attributes = domain.Attributes{}
			}
			state.put(r)
		}
	}
	return state
}

// Store provides an in-memory transactional record store.
type Store struct {
	mu       sync.RWMutex
	state    memoryState
	schema   Schema
	engine   *RulesEngine
	validate *validator.Validate
	nowFn    func() time.Time
}

// NewStore constructs an in-memory store for the given schema backed by the
// provided rules engine.
func NewStore(schema Schema, engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:    newMemoryState(),
		schema:   schema,
		engine:   engine,
		validate: validator.New(),
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the configured engine so callers can register rules.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Schema returns the schema the store resolves relationships with.
func (s *Store) Schema() domain.Schema { return s.schema }

// SetNowFunc replaces the clock used to stamp records.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) Types() []RecordType { return v.state.types() }

func (v transactionView) List(t RecordType) []Record { return v.state.list(t) }

func (v transactionView) Find(t RecordType, id string) (Record, bool) { return v.state.find(t, id) }

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces committed state only when fn succeeds and no rule blocks.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

// Get retrieves a record by type and ID from committed state.
func (s *Store) Get(t RecordType, id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.find(t, id)
}

// List returns every committed record of t in insertion order.
func (s *Store) List(t RecordType) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.list(t)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) Find(t RecordType, id string) (Record, bool) {
	return tx.state.find(t, id)
}

func (tx *transaction) checkType(t RecordType) error {
	if tx.store.schema != nil && !tx.store.schema.Known(t) {
		return fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	return nil
}

// Create stores a new record, generating its ID when none is set.
func (tx *transaction) Create(r Record) (Record, error) {
	if err := tx.checkType(r.Type); err != nil {
		return Record{}, err
	}
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	if _, exists := tx.state.records[r.Type][r.ID]; exists {
		return Record{}, fmt.Errorf("%s %q already exists", r.Type, r.ID)
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	if r.Attributes == nil {
		r.Attributes = domain.Attributes{}
	}
	tx.state.put(r)
	after := domain.CloneRecord(r)
	tx.recordChange(Change{Type: r.Type, Action: domain.ActionCreate, After: &after})
	return domain.CloneRecord(r), nil
}

// Update mutates a record using the provided mutator function.
func (tx *transaction) Update(t RecordType, id string, mutator func(*Record) error) (Record, error) {
	current, ok := tx.state.find(t, id)
	if !ok {
		return Record{}, domain.ErrNotFound{Type: t, ID: id}
	}
	before := domain.CloneRecord(current)
	if err := mutator(&current); err != nil {
		return Record{}, err
	}
	current.Type = t
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.put(current)
	after := domain.CloneRecord(current)
	tx.recordChange(Change{Type: t, Action: domain.ActionUpdate, Before: &before, After: &after})
	return domain.CloneRecord(current), nil
}

// Delete removes a record from the transaction state.
func (tx *transaction) Delete(t RecordType, id string) error {
	current, ok := tx.state.find(t, id)
	if !ok {
		return domain.ErrNotFound{Type: t, ID: id}
	}
	tx.state.remove(t, id)
	tx.recordChange(Change{Type: t, Action: domain.ActionDelete, Before: &current})
	return nil
}

// Clone returns an unsaved copy of r.
func (tx *transaction) Clone(r Record) Record {
	cp := domain.CloneRecord(r)
	cp.ID = ""
	cp.CreatedAt = time.Time{}
	cp.UpdatedAt = time.Time{}
	if cp.Attributes == nil {
		cp.Attributes = domain.Attributes{}
	}
	return cp
}

// Persist creates r, or replaces the attributes of the stored record when r
// already carries an ID.
func (tx *transaction) Persist(ctx context.Context, r *Record, validate bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if validate {
		if err := tx.store.validateRecord(*r); err != nil {
			return err
		}
	}
	var (
		saved Record
		err   error
	)
	if r.ID == "" {
		saved, err = tx.Create(*r)
	} else {
		attrs := r.Attributes.Clone()
		saved, err = tx.Update(r.Type, r.ID, func(cur *Record) error {
			cur.Attributes = attrs
			return nil
		})
	}
	if err != nil {
		return err
	}
	*r = saved
	return nil
}

// Validate checks r against the validation rules its schema declares.
func (s *Store) Validate(r Record) error {
	return s.validateRecord(r)
}

func (s *Store) validateRecord(r Record) error {
	if s.schema == nil {
		return nil
	}
	rules := s.schema.ValidationRules(r.Type)
	if len(rules) == 0 {
		return nil
	}
	data := make(map[string]any, len(r.Attributes))
	for k, v := range r.Attributes {
		data[k] = v
	}
	errs := s.validate.ValidateMap(data, rules)
	if len(errs) == 0 {
		return nil
	}
	fields := make(map[string]string, len(errs))
	for field, err := range errs {
		var verrs validator.ValidationErrors
		if e, ok := err.(error); ok && errors.As(e, &verrs) && len(verrs) > 0 {
			fields[field] = verrs[0].Tag()
			continue
		}
		fields[field] = fmt.Sprint(err)
	}
	return &domain.ValidationError{Type: r.Type, Fields: fields}
}
