package pointstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/bytedance/sonic"
)

// bucketDims maps collection name to vector dimension. Every other bucket is a
// collection of points keyed by id.
var bucketDims = []byte("_dims")

// BoltStore keeps points in a local bolt file, one bucket per collection.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens or creates the bolt file at path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open point store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDims)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) CollectionExists(_ context.Context, name string) (bool, error) {
	exists := false
	err := s.db.View(func(tx *bolt.Tx) error {
		exists = name != string(bucketDims) && tx.Bucket([]byte(name)) != nil
		return nil
	})
	return exists, err
}

func (s *BoltStore) CreateCollection(_ context.Context, name string, dim int) error {
	if name == string(bucketDims) {
		return fmt.Errorf("collection name %q is reserved", name)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
			return fmt.Errorf("failed to create bucket %q: %w", name, err)
		}
		dims := tx.Bucket(bucketDims)
		if dims.Get([]byte(name)) != nil {
			return nil
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(dim))
		return dims.Put([]byte(name), buf)
	})
}

func (s *BoltStore) Upsert(_ context.Context, collection string, p *Point) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := pointBucket(tx, collection)
		if err != nil {
			return err
		}
		if p.Vector != nil {
			if dim := collectionDim(tx, collection); dim > 0 && len(p.Vector) != dim {
				return fmt.Errorf("point %s has %d dimensions, collection %s expects %d", p.ID, len(p.Vector), collection, dim)
			}
		}
		return putPoint(b, p)
	})
}

func (s *BoltStore) Retrieve(_ context.Context, collection, id string) (*Point, error) {
	var p *Point
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := pointBucket(tx, collection)
		if err != nil {
			return err
		}
		data := b.Get([]byte(id))
		if data == nil {
			return nil
		}
		p = &Point{}
		return sonic.Unmarshal(data, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *BoltStore) SetPayloadOnly(_ context.Context, collection, id string, payload Payload) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := pointBucket(tx, collection)
		if err != nil {
			return err
		}
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrPointNotFound, id)
		}
		var p Point
		if err := sonic.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("failed to unmarshal point %s: %w", id, err)
		}
		p.Payload = payload
		return putPoint(b, &p)
	})
}

func (s *BoltStore) Search(_ context.Context, collection string, query []float32, k int) ([]ScoredPoint, error) {
	var points []*Point
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := pointBucket(tx, collection)
		if err != nil {
			return err
		}
		return b.ForEach(func(_, v []byte) error {
			var p Point
			if err := sonic.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("failed to unmarshal point: %w", err)
			}
			points = append(points, &p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rankPoints(points, query, k), nil
}

// Close closes the bolt file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func pointBucket(tx *bolt.Tx, collection string) (*bolt.Bucket, error) {
	b := tx.Bucket([]byte(collection))
	if b == nil || collection == string(bucketDims) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	return b, nil
}

func collectionDim(tx *bolt.Tx, collection string) int {
	v := tx.Bucket(bucketDims).Get([]byte(collection))
	if len(v) != 8 {
		return 0
	}
	return int(binary.BigEndian.Uint64(v))
}

func putPoint(b *bolt.Bucket, p *Point) error {
	data, err := sonic.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal point %s: %w", p.ID, err)
	}
	return b.Put([]byte(p.ID), data)
}
