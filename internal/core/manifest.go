package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	blobcore "deepcopy/internal/blob/core"
	"deepcopy/pkg/domain"
)

const manifestPrefix = "manifests"

// Manifest records which copy was made from which source record in one
// committed duplication.
type Manifest struct {
	Source    domain.RecordRef `json:"source"`
	Root      domain.RecordRef `json:"root"`
	Entries   []ManifestEntry  `json:"entries"`
	Failures  []string         `json:"failures,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// ManifestEntry maps one source record to its copy.
type ManifestEntry struct {
	Source domain.RecordRef `json:"source"`
	Clone  domain.RecordRef `json:"clone"`
	Depth  int              `json:"depth"`
}

// ManifestKey returns the blob key the manifest for a root copy is stored under.
func ManifestKey(root domain.RecordRef) string {
	return path.Join(manifestPrefix, string(root.Type), root.ID+".json")
}

// NewManifest describes dup, which was made from source.
func NewManifest(source domain.RecordRef, dup domain.Duplication, now time.Time) (Manifest, bool) {
	root, ok := dup.Root()
	if !ok {
		return Manifest{}, false
	}
	m := Manifest{
		Source:    source,
		Root:      root.Ref(),
		Entries:   make([]ManifestEntry, 0, len(dup.Entries)),
		CreatedAt: now,
	}
	for _, e := range dup.Entries {
		m.Entries = append(m.Entries, ManifestEntry{Source: e.Source, Clone: e.Clone.Ref(), Depth: e.Depth})
	}
	for _, f := range dup.Failures {
		m.Failures = append(m.Failures, f.Error())
	}
	return m, true
}

// archive stores the manifest of a committed duplication. The copies are
// already committed, so a failed write is logged rather than returned.
func (s *Service) archive(ctx context.Context, source domain.RecordRef, dup domain.Duplication) {
	if s.opts.manifests == nil {
		return
	}
	m, ok := NewManifest(source, dup, s.opts.clock.Now())
	if !ok {
		return
	}
	if err := WriteManifest(ctx, s.opts.manifests, m); err != nil {
		s.opts.logger.Warn("manifest write failed", "key", ManifestKey(m.Root), "error", err)
	}
}

// WriteManifest encodes m as JSON under ManifestKey(m.Root).
func WriteManifest(ctx context.Context, store blobcore.Store, m Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	_, err = store.Put(ctx, ManifestKey(m.Root), bytes.NewReader(b), blobcore.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"source": m.Source.String()},
	})
	return err
}

// ReadManifest loads the manifest stored for the given root copy.
func ReadManifest(ctx context.Context, store blobcore.Store, root domain.RecordRef) (Manifest, error) {
	key := ManifestKey(root)
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return Manifest{}, err
	}
	defer func() { _ = rc.Close() }()
	var m Manifest
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest %s: %w", key, err)
	}
	return m, nil
}

// Manifest returns the archived manifest for a root copy.
func (s *Service) Manifest(ctx context.Context, root domain.RecordRef) (Manifest, error) {
	if s.opts.manifests == nil {
		return Manifest{}, errors.New("manifest archive not configured")
	}
	return ReadManifest(ctx, s.opts.manifests, root)
}

// ManifestKeys lists the archived manifest keys for copies of type t.
func (s *Service) ManifestKeys(ctx context.Context, t domain.RecordType) ([]string, error) {
	if s.opts.manifests == nil {
		return nil, errors.New("manifest archive not configured")
	}
	infos, err := s.opts.manifests.List(ctx, path.Join(manifestPrefix, string(t))+"/")
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, info.Key)
	}
	return keys, nil
}
