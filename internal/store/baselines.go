package store

import (
	"errors"
	"fmt"

	"margin_bot/internal/models"

	"github.com/bytedance/sonic"
	"github.com/dgraph-io/badger/v3"
)

const baselinePrefix = "baseline/"

// Baselines хранит стартовую стоимость и курсор чата каждого бота в badger.
type Baselines struct {
	db *badger.DB
}

// Open открывает хранилище по пути; пустой путь: хранилище в памяти, до перезапуска процесса.
func Open(path string) (*Baselines, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", path, err)
	}
	return &Baselines{db: db}, nil
}

func (s *Baselines) Save(key string, b models.Baseline) error {
	data, err := sonic.Marshal(b)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(baselinePrefix+key), data)
	})
}

// Load возвращает (nil, nil), если записи нет.
func (s *Baselines) Load(key string) (*models.Baseline, error) {
	var b models.Baseline
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(baselinePrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) == 0 {
				return errors.New("baseline value is empty")
			}
			return sonic.Unmarshal(val, &b)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Baselines) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(baselinePrefix + key))
	})
}

// Keys: все сохранённые ключи, для диагностики.
func (s *Baselines) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(baselinePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().Key()[len(baselinePrefix):]))
		}
		return nil
	})
	return keys, err
}

func (s *Baselines) Close() error {
	return s.db.Close()
}
