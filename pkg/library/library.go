// Package library is the recording manager: the sole owner of the
// durable audio and metadata partitions and the only caller of the
// acoustic index. It keeps the two in step: every accepted audio or
// metadata mutation leaves the index reflecting the stored state, and
// Replay rebuilds the index from storage on a cold start.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tonearm/tonearm/pkg/fingerprint"
	"github.com/tonearm/tonearm/pkg/kv"
)

// ReferenceRate is the sample rate, in Hz, recordings are assumed to be
// stored at. Payloads carry no rate tag, so every path that reads audio
// back for fingerprinting assumes this rate.
const ReferenceRate = 44100

var (
	ErrRecordingNotFound = errors.New("library: recording not found")
	ErrMetadataNotFound  = errors.New("library: metadata not found")
)

// Index is the acoustic index capability the library drives. It expects
// samples at its own fixed rate; the library converts before every call.
type Index interface {
	Register(id string, samples []float32) error
	Unregister(id string)
	Search(samples []float32) []fingerprint.Match
	SampleRate() int
}

// ResampleFunc converts samples between sample rates.
type ResampleFunc func(samples []float32, fromRate, toRate int) ([]float32, error)

// Library coordinates the durable store and the in-memory index.
// Mutations are serialized by a single lock; reads and searches run
// concurrently.
type Library struct {
	store    kv.Store
	index    Index
	resample ResampleFunc
	log      *slog.Logger

	mu sync.Mutex // serializes PutAudio, PutMetadata, Replay
}

// New creates a Library over the given store and index. logger may be
// nil; it is only used to report recordings skipped during Replay.
func New(store kv.Store, index Index, resample ResampleFunc, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{store: store, index: index, resample: resample, log: logger}
}

// register converts samples from fromRate to the index rate and
// registers them.
func (l *Library) register(id string, samples []float32, fromRate int) error {
	converted, err := l.resample(samples, fromRate, l.index.SampleRate())
	if err != nil {
		return fmt.Errorf("library: resample %s: %w", id, err)
	}
	if err := l.index.Register(id, converted); err != nil {
		return fmt.Errorf("library: index %s: %w", id, err)
	}
	return nil
}

// PutAudio stores a recording's samples verbatim, creates default
// metadata when none exists, and registers the recording unless its
// metadata says indexed=false. Overwriting existing audio re-registers.
func (l *Library) PutAudio(ctx context.Context, id string, samples []float32, sampleRate int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Put(ctx, kv.Audio, id, samplesToBytes(samples)); err != nil {
		return fmt.Errorf("library: store audio %s: %w", id, err)
	}

	md, err := l.getMetadata(ctx, id)
	if errors.Is(err, ErrMetadataNotFound) {
		md = Metadata{Name: id, Date: time.Now(), Tags: []string{}, Indexed: true}
		if err := l.putMetadata(ctx, id, md); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if !md.Indexed {
		return nil
	}
	return l.register(id, samples, sampleRate)
}

// GetAudio returns a recording's samples.
func (l *Library) GetAudio(ctx context.Context, id string) ([]float32, error) {
	data, err := l.store.Get(ctx, kv.Audio, id)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrRecordingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("library: load audio %s: %w", id, err)
	}
	return bytesToSamples(data)
}

// ListIDs returns all recording ids, newest first by metadata date.
// Recordings without metadata sort last. Order is stable.
func (l *Library) ListIDs(ctx context.Context) ([]string, error) {
	type dated struct {
		id   string
		date time.Time
	}
	var all []dated
	for id, err := range l.store.Keys(ctx, kv.Audio) {
		if err != nil {
			return nil, fmt.Errorf("library: list recordings: %w", err)
		}
		d := dated{id: id} // zero date when metadata is missing
		if md, err := l.getMetadata(ctx, id); err == nil {
			d.date = md.Date
		} else if !errors.Is(err, ErrMetadataNotFound) {
			return nil, err
		}
		all = append(all, d)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].date.After(all[j].date) })

	ids := make([]string, len(all))
	for i, d := range all {
		ids[i] = d.id
	}
	return ids, nil
}

// PutMetadata replaces a recording's metadata wholesale and reconciles
// the index: indexed metadata re-registers stored audio (assumed at the
// reference rate), unindexed metadata removes any registration.
func (l *Library) PutMetadata(ctx context.Context, id string, md Metadata) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.putMetadata(ctx, id, md); err != nil {
		return err
	}

	if !md.Indexed {
		l.index.Unregister(id)
		return nil
	}

	samples, err := l.GetAudio(ctx, id)
	if errors.Is(err, ErrRecordingNotFound) {
		return nil // metadata ahead of audio; PutAudio will register
	}
	if err != nil {
		return err
	}
	return l.register(id, samples, ReferenceRate)
}

// GetMetadata returns a recording's metadata.
func (l *Library) GetMetadata(ctx context.Context, id string) (Metadata, error) {
	return l.getMetadata(ctx, id)
}

func (l *Library) getMetadata(ctx context.Context, id string) (Metadata, error) {
	data, err := l.store.Get(ctx, kv.Meta, id)
	if errors.Is(err, kv.ErrNotFound) {
		return Metadata{}, ErrMetadataNotFound
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("library: load metadata %s: %w", id, err)
	}
	var md Metadata
	if err := msgpack.Unmarshal(data, &md); err != nil {
		return Metadata{}, fmt.Errorf("library: decode metadata %s: %w", id, err)
	}
	return md, nil
}

func (l *Library) putMetadata(ctx context.Context, id string, md Metadata) error {
	data, err := msgpack.Marshal(md)
	if err != nil {
		return fmt.Errorf("library: encode metadata %s: %w", id, err)
	}
	if err := l.store.Put(ctx, kv.Meta, id, data); err != nil {
		return fmt.Errorf("library: store metadata %s: %w", id, err)
	}
	return nil
}

// Search matches a query payload against the index. Results come back
// in the index's order: best (lowest score) first.
func (l *Library) Search(ctx context.Context, samples []float32, sampleRate int) ([]fingerprint.Match, error) {
	converted, err := l.resample(samples, sampleRate, l.index.SampleRate())
	if err != nil {
		return nil, fmt.Errorf("library: resample query: %w", err)
	}
	return l.index.Search(converted), nil
}

// Replay rebuilds the index from storage: every stored recording is
// re-registered unless its metadata says indexed=false. Stored audio is
// assumed to be at the reference rate. Recordings the index rejects are
// skipped with a warning rather than failing the whole replay; store
// errors are fatal. Replay is idempotent. It returns the number of
// recordings registered.
func (l *Library) Replay(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	registered := 0
	for id, err := range l.store.Keys(ctx, kv.Audio) {
		if err != nil {
			return registered, fmt.Errorf("library: replay: %w", err)
		}

		md, err := l.getMetadata(ctx, id)
		switch {
		case errors.Is(err, ErrMetadataNotFound):
			// No metadata: default-open, register anyway.
		case err != nil:
			return registered, err
		case !md.Indexed:
			continue
		}

		samples, err := l.GetAudio(ctx, id)
		if err != nil {
			return registered, fmt.Errorf("library: replay: %w", err)
		}
		if err := l.register(id, samples, ReferenceRate); err != nil {
			l.log.Warn("replay: skipping recording", "id", id, "error", err)
			continue
		}
		registered++
	}
	return registered, nil
}
