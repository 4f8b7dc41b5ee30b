// Package store persists the single dashboard session in a key/value store.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"vizninja/domain/core"
	"vizninja/domain/dataset"
	"vizninja/domain/session"
	"vizninja/internal/errors"
	"vizninja/ports"
)

// Storage keys. Each value is a JSON document.
const (
	KeySessionID           = "sessionId"
	KeyStats               = "stats"
	KeyColumnNames         = "columnNames"
	KeySampleData          = "sampleData"
	KeyNumericFeatures     = "numericFeatures"
	KeyCategoricalFeatures = "categoricalFeatures"
	KeyVisualizations      = "visualizations"
	KeyRegression          = "regression"
)

// Keys lists every key owned by the session store.
var Keys = []string{
	KeySessionID,
	KeyStats,
	KeyColumnNames,
	KeySampleData,
	KeyNumericFeatures,
	KeyCategoricalFeatures,
	KeyVisualizations,
	KeyRegression,
}

// SessionStore saves and restores the current session. Every write is one
// KVStore batch and every read one snapshot, so a Load never mixes two saves.
// Concurrent Saves are last-write-wins.
type SessionStore struct {
	kv ports.KVStore
}

// New creates a session store over kv
func New(kv ports.KVStore) *SessionStore {
	return &SessionStore{kv: kv}
}

// Save replaces the stored session with sess. Keys for empty optional fields
// are removed first so the stored session never mixes two uploads.
func (s *SessionStore) Save(ctx context.Context, sess *session.Session) error {
	if !sess.Exists() {
		return errors.ValidationError("cannot save a session without an id")
	}

	entries := make(map[string]string, len(Keys))
	var stale []string

	put := func(key string, v interface{}) error {
		data, err := json.Marshal(v)
		if err != nil {
			return errors.Wrapf(err, "failed to encode %s", key)
		}
		entries[key] = string(data)
		return nil
	}

	fields := []struct {
		key string
		v   interface{}
	}{
		{KeySessionID, sess.ID},
		{KeyStats, sess.Stats},
		{KeyColumnNames, sess.ColumnNames},
		{KeySampleData, sess.SampleRows},
		{KeyNumericFeatures, sess.NumericFeatures},
		{KeyCategoricalFeatures, sess.CategoricalFeatures},
	}
	for _, f := range fields {
		if err := put(f.key, f.v); err != nil {
			return err
		}
	}

	if sess.HasVisualizations() {
		if err := put(KeyVisualizations, sess.Visualizations); err != nil {
			return err
		}
	} else {
		stale = append(stale, KeyVisualizations)
	}
	if sess.Regression != nil {
		if err := put(KeyRegression, sess.Regression); err != nil {
			return err
		}
	} else {
		stale = append(stale, KeyRegression)
	}

	if err := s.kv.Apply(ctx, ports.Batch{Set: entries, Delete: stale}); err != nil {
		return errors.Wrap(err, "failed to save session")
	}
	return nil
}

// Load returns the stored session, or nil when none has been saved. All keys
// are read from one snapshot.
func (s *SessionStore) Load(ctx context.Context) (*session.Session, error) {
	values, err := s.kv.GetMany(ctx, Keys)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read session")
	}

	var id core.SessionID
	found, err := decode(values, KeySessionID, &id)
	if err != nil {
		return nil, err
	}
	if !found || id.IsEmpty() {
		return nil, nil
	}

	sess := &session.Session{ID: id}
	targets := []struct {
		key string
		v   interface{}
	}{
		{KeyStats, &sess.Stats},
		{KeyColumnNames, &sess.ColumnNames},
		{KeySampleData, &sess.SampleRows},
		{KeyNumericFeatures, &sess.NumericFeatures},
		{KeyCategoricalFeatures, &sess.CategoricalFeatures},
		{KeyVisualizations, &sess.Visualizations},
	}
	for _, t := range targets {
		if _, err := decode(values, t.key, t.v); err != nil {
			return nil, err
		}
	}

	var regression dataset.RegressionResult
	found, err = decode(values, KeyRegression, &regression)
	if err != nil {
		return nil, err
	}
	if found {
		sess.Regression = &regression
	}
	return sess, nil
}

// Clear removes every stored session key.
func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.kv.Apply(ctx, ports.Batch{Delete: Keys}); err != nil {
		return errors.Wrap(err, "failed to clear session")
	}
	return nil
}

// UpdateVisualizations stores freshly rendered charts for session id. A
// regression fitted on the previous cleaned data no longer applies and is
// dropped in the same write. If id is no longer the stored session nothing is
// written and the error wraps core.ErrSessionReplaced.
func (s *SessionStore) UpdateVisualizations(ctx context.Context, id core.SessionID, viz dataset.Visualizations) error {
	data, err := json.Marshal(viz)
	if err != nil {
		return errors.Wrap(err, "failed to encode visualizations")
	}
	batch := ports.Batch{
		Set:    map[string]string{KeyVisualizations: string(data)},
		Delete: []string{KeyRegression},
	}
	return s.applyFor(ctx, id, batch, "failed to save visualizations")
}

// SaveRegression stores the latest regression result for session id, with
// the same replaced-session check as UpdateVisualizations.
func (s *SessionStore) SaveRegression(ctx context.Context, id core.SessionID, result *dataset.RegressionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "failed to encode regression")
	}
	batch := ports.Batch{Set: map[string]string{KeyRegression: string(data)}}
	return s.applyFor(ctx, id, batch, "failed to save regression")
}

// applyFor writes batch only while id is still the stored session.
func (s *SessionStore) applyFor(ctx context.Context, id core.SessionID, batch ports.Batch, msg string) error {
	current, err := json.Marshal(id)
	if err != nil {
		return errors.Wrap(err, "failed to encode session id")
	}
	batch.Require = map[string]string{KeySessionID: string(current)}

	err = s.kv.Apply(ctx, batch)
	if errors.Is(err, ports.ErrPreconditionFailed) {
		return errors.WithCode(errors.CodeStaleSession, fmt.Errorf("%w: %s", core.ErrSessionReplaced, id))
	}
	if err != nil {
		return errors.Wrap(err, msg)
	}
	return nil
}

func decode(values map[string]string, key string, v interface{}) (bool, error) {
	raw, ok := values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, errors.StoreCorrupt(key, err)
	}
	return true, nil
}
