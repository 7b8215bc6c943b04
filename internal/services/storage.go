package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	. "permit-collector/internal/common"
	. "permit-collector/internal/interfaces"
	"permit-collector/internal/models"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

const (
	runsBucket     = "runs"
	outcomesBucket = "outcomes"
	metadataBucket = "metadata"
	lastRunKey     = "last_run"
)

type storage struct {
	db     *bolt.DB
	config *StorageConfig
}

// NewStorage opens the outcome ledger
func NewStorage(config *StorageConfig) (OutcomeStore, error) {
	dbDir := filepath.Dir(config.DatabasePath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, WrapError(err, ErrorTypeStorage, "mkdir_failed", "failed to create database directory")
	}

	db, err := bolt.Open(config.DatabasePath, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, WrapError(err, ErrorTypeStorage, "open_failed", "failed to open database")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{runsBucket, outcomesBucket, metadataBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, WrapError(err, ErrorTypeStorage, "bucket_failed", "failed to create buckets")
	}

	return &storage{
		db:     db,
		config: config,
	}, nil
}

func (s *storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *storage) BeginRun(streets int) (*models.RunRecord, error) {
	run := &models.RunRecord{
		ID:      uuid.NewString(),
		Started: time.Now(),
		Streets: streets,
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := putJSON(tx.Bucket([]byte(runsBucket)), []byte(run.ID), run); err != nil {
			return err
		}
		return tx.Bucket([]byte(metadataBucket)).Put([]byte(lastRunKey), []byte(run.ID))
	})
	if err != nil {
		return nil, WrapError(err, ErrorTypeStorage, "begin_failed", "failed to record run start")
	}
	return run, nil
}

func (s *storage) RecordOutcome(runID string, outcome models.HarvestOutcome) error {
	key := []byte(fmt.Sprintf("%s:%d:%08d", runID, outcome.Pass, outcome.Sequence))

	err := s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket([]byte(outcomesBucket)), key, outcome)
	})
	if err != nil {
		return WrapError(err, ErrorTypeStorage, "record_failed", fmt.Sprintf("failed to record outcome for %s", outcome.Street))
	}
	return nil
}

func (s *storage) FinishRun(runID string, failed []models.Street) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(runsBucket))
		data := bucket.Get([]byte(runID))
		if data == nil {
			return fmt.Errorf("run %s not found", runID)
		}

		var run models.RunRecord
		if err := json.Unmarshal(data, &run); err != nil {
			return err
		}
		run.Finished = time.Now()
		run.Failed = failed
		return putJSON(bucket, []byte(runID), &run)
	})
	if err != nil {
		return WrapError(err, ErrorTypeStorage, "finish_failed", "failed to record run finish")
	}
	return nil
}

// LastRun returns the most recently started run, or nil when the ledger is empty
func (s *storage) LastRun() (*models.RunRecord, error) {
	var run *models.RunRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket([]byte(metadataBucket)).Get([]byte(lastRunKey))
		if id == nil {
			return nil
		}

		data := tx.Bucket([]byte(runsBucket)).Get(id)
		if data == nil {
			return nil
		}

		run = &models.RunRecord{}
		return json.Unmarshal(data, run)
	})
	if err != nil {
		return nil, WrapError(err, ErrorTypeStorage, "load_failed", "failed to load last run")
	}
	return run, nil
}

// LoadOutcomes returns a run's outcomes ordered by pass then sequence
func (s *storage) LoadOutcomes(runID string) ([]models.HarvestOutcome, error) {
	var outcomes []models.HarvestOutcome

	err := s.db.View(func(tx *bolt.Tx) error {
		prefix := []byte(runID + ":")
		c := tx.Bucket([]byte(outcomesBucket)).Cursor()
		for k, v := c.Seek(prefix); k != nil && len(k) >= len(prefix) && string(k[:len(prefix)]) == string(prefix); k, v = c.Next() {
			var outcome models.HarvestOutcome
			if err := json.Unmarshal(v, &outcome); err != nil {
				continue
			}
			outcomes = append(outcomes, outcome)
		}
		return nil
	})
	if err != nil {
		return nil, WrapError(err, ErrorTypeStorage, "load_failed", "failed to load outcomes")
	}
	return outcomes, nil
}

func putJSON(bucket *bolt.Bucket, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return bucket.Put(key, data)
}
