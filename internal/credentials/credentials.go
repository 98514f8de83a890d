// Package credentials loads the server credential store and resolves the
// username and password a connection should use.
//
// The store is a YAML file:
//
//	servers:
//	  - id: app-db
//	    username: app
//	    password: secret
//
// A missing store file is treated as an empty store.
package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Resolution failures. Callers add the section and server id.
var (
	ErrServerNotFound = errors.New("server not found")
	ErrEmptyUsername  = errors.New("server username is empty")
	ErrNoUsername     = errors.New("no username defined")
)

// Server is one entry of the credential store.
type Server struct {
	ID       string `koanf:"id"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// Store holds servers by id.
type Store struct {
	servers map[string]Server
}

// NewStore builds a store from servers. Later entries win on duplicate ids.
func NewStore(servers ...Server) *Store {
	s := &Store{servers: make(map[string]Server, len(servers))}
	for _, srv := range servers {
		s.servers[srv.ID] = srv
	}
	return s
}

// Load reads the store at path. A leading "~/" is expanded to the home
// directory. An empty path or a missing file yields an empty store.
func Load(path string) (*Store, error) {
	if path == "" {
		return NewStore(), nil
	}
	path = ExpandHome(path)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewStore(), nil
		}
		return nil, fmt.Errorf("failed to stat credentials file: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error reading credentials file %s: %w", path, err)
	}

	var servers []Server
	if err := k.Unmarshal("servers", &servers); err != nil {
		return nil, fmt.Errorf("unable to decode credentials file %s: %w", path, err)
	}
	return NewStore(servers...), nil
}

// Lookup returns the server registered under id.
func (s *Store) Lookup(id string) (Server, bool) {
	if s == nil {
		return Server{}, false
	}
	srv, ok := s.servers[id]
	return srv, ok
}

// Len returns the number of servers in the store.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.servers)
}

// Ref names the credentials of one connection: a server id in the store,
// or an inline username and password.
type Ref struct {
	ServerID string
	Username string
	Password string
}

// Credentials are the resolved username and password.
type Credentials struct {
	Username string
	Password string
}

// Resolve picks the credentials for ref. A server id takes precedence over
// inline values and must name a store entry with a non-empty username;
// without a server id an inline username is required.
func Resolve(ref Ref, store *Store) (Credentials, error) {
	if ref.ServerID != "" {
		srv, ok := store.Lookup(ref.ServerID)
		if !ok {
			return Credentials{}, ErrServerNotFound
		}
		if srv.Username == "" {
			return Credentials{}, ErrEmptyUsername
		}
		return Credentials{Username: srv.Username, Password: srv.Password}, nil
	}
	if ref.Username == "" {
		return Credentials{}, ErrNoUsername
	}
	return Credentials{Username: ref.Username, Password: ref.Password}, nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
