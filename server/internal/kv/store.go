package kv

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/marcopiovanello/yt-dlp-remote/server/internal"
	bolt "go.etcd.io/bbolt"
)

var (
	bucket     = []byte("session")
	sessionKey = []byte("paused")
)

// Bolt backed persistence of the paused download, so that Resume survives a
// restart of the program.
type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func NewStore(db *bolt.DB) (*Store, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Save(req internal.DownloadRequest) error {
	data, err := json.Marshal(Session{Request: req, PausedAt: time.Now()})
	if err != nil {
		return errors.Join(errors.New("failed to persist session"), err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(sessionKey, data)
	})
}

// Load returns nil, nil when nothing is paused.
func (s *Store) Load() (*internal.DownloadRequest, error) {
	var sess *Session

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get(sessionKey)
		if v == nil {
			return nil
		}

		sess = &Session{}
		return json.Unmarshal(v, sess)
	})
	if err != nil {
		return nil, errors.Join(errors.New("failed to restore session"), err)
	}
	if sess == nil {
		return nil, nil
	}

	return &sess.Request, nil
}

func (s *Store) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete(sessionKey)
	})
}

func (s *Store) Close() error { return s.db.Close() }
