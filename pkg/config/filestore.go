package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"
)

// FileStore is a Store persisted as a protobuf Struct, one string field
// per key holding base64 of the value.
type FileStore struct {
	Path string

	lock   sync.Mutex
	values map[string][]byte
}

// OpenFileStore loads path. A missing or unreadable file yields an empty
// store so that settings fall back to defaults.
func OpenFileStore(path string) *FileStore {
	s := &FileStore{Path: path, values: make(map[string][]byte)}
	if err := s.load(); err != nil {
		glog.Warningf("settings %s unreadable, using defaults: %v", path, err)
		s.values = make(map[string][]byte)
	}
	return s
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return err
	}
	for key, val := range msg.Fields {
		str, ok := val.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return fmt.Errorf("key %q: unexpected kind", key)
		}
		b, err := base64.StdEncoding.DecodeString(str.StringValue)
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		s.values[key] = b
	}
	return nil
}

// Get implements Store.
func (s *FileStore) Get(key string) ([]byte, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	val, ok := s.values[key]
	return val, ok
}

// Set implements Store.
func (s *FileStore) Set(key string, value []byte) {
	s.lock.Lock()
	s.values[key] = append([]byte(nil), value...)
	s.lock.Unlock()
}

// Commit implements Store. The file is replaced atomically.
func (s *FileStore) Commit() error {
	msg := &structpb.Struct{Fields: make(map[string]*structpb.Value)}
	s.lock.Lock()
	for key, val := range s.values {
		msg.Fields[key] = &structpb.Value{
			Kind: &structpb.Value_StringValue{StringValue: base64.StdEncoding.EncodeToString(val)},
		}
	}
	s.lock.Unlock()
	data, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if dir := filepath.Dir(s.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, s.Path)
}
