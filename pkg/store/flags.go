package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/hashicorp/go-memdb"
	"github.com/open-feature/flagdemo/pkg/model"
	log "github.com/sirupsen/logrus"
)

const flagsTable = "flags"

type Notifications = map[string]interface{}

// State holds the flags of the last accepted settings document.
type State struct {
	mx       sync.RWMutex
	db       *memdb.MemDB
	metadata model.Metadata
	raw      json.RawMessage
}

func NewFlags() *State {
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			flagsTable: {
				Name: flagsTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Key"},
					},
				},
			},
		},
	}

	// Create a new data base
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		panic(err)
	}

	return &State{
		db:       db,
		metadata: model.Metadata{},
	}
}

func (f *State) Get(key string) (model.Flag, bool) {
	txn := f.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(flagsTable, "id", key)
	if err != nil {
		log.Errorf("looking up flag %s: %v", key, err)
		return model.Flag{}, false
	}

	flag, ok := raw.(model.Flag)
	return flag, ok
}

// GetAll returns a copy of the store's flags (copy in order to be concurrency safe)
func (f *State) GetAll() map[string]model.Flag {
	txn := f.db.Txn(false)
	defer txn.Abort()

	return collect(txn)
}

func collect(txn *memdb.Txn) map[string]model.Flag {
	flags := map[string]model.Flag{}
	it, err := txn.Get(flagsTable, "id")
	if err != nil {
		log.Errorf("listing flags: %v", err)
		return flags
	}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		flag := obj.(model.Flag)
		flags[flag.Key] = flag
	}
	return flags
}

// Raw returns the settings document the current state was built from.
func (f *State) Raw() json.RawMessage {
	f.mx.RLock()
	defer f.mx.RUnlock()

	if f.raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(f.raw))
	copy(out, f.raw)
	return out
}

func (f *State) String() (string, error) {
	f.mx.RLock()
	metadata := f.metadata
	f.mx.RUnlock()

	bytes, err := json.Marshal(map[string]interface{}{"flags": f.GetAll(), "metadata": metadata})
	if err != nil {
		return "", fmt.Errorf("unable to marshal flags: %w", err)
	}

	return string(bytes), nil
}

// Update replaces the flag state with the provided settings and reports what changed.
func (f *State) Update(source string, settings model.Settings, raw json.RawMessage) Notifications {
	notifications := Notifications{}

	f.mx.Lock()
	defer f.mx.Unlock()

	txn := f.db.Txn(true)
	defer txn.Abort()

	stored := collect(txn)
	for k, flag := range stored {
		if _, ok := settings.Flags[k]; ok {
			continue
		}
		if err := txn.Delete(flagsTable, flag); err != nil {
			log.Errorf("deleting flag %s: %v", k, err)
			continue
		}
		notifications[k] = map[string]interface{}{
			"type":   string(model.NotificationDelete),
			"source": source,
		}
		log.Debugf("flag %s has been deleted from source %s", k, source)
	}

	for k, newFlag := range settings.Flags {
		newFlag.Source = source
		newFlag.Key = k
		storedFlag, ok := stored[k]
		if ok && reflect.DeepEqual(storedFlag, newFlag) {
			continue
		}
		if err := txn.Insert(flagsTable, newFlag); err != nil {
			log.Errorf("storing flag %s: %v", k, err)
			continue
		}
		notificationType := model.NotificationCreate
		if ok {
			notificationType = model.NotificationUpdate
		}
		notifications[k] = map[string]interface{}{
			"type":   string(notificationType),
			"source": source,
		}
	}
	txn.Commit()

	f.metadata = settings.Metadata
	f.raw = raw
	return notifications
}
