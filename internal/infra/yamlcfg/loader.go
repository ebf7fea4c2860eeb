package yamlcfg

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/ports"
	"gopkg.in/yaml.v3"
)

// Store reads and writes experiment config documents as YAML.
type Store struct {
	dirMode fs.FileMode
}

func NewStore() *Store {
	return &Store{dirMode: 0o755}
}

var (
	_ ports.ConfigLoader = (*Store)(nil)
	_ ports.ConfigWriter = (*Store)(nil)
)

func (s *Store) LoadConfig(path string) (domain.ConfigDoc, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.OpError{
			Op:   "yamlcfg.load",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}
	return Decode(path, b)
}

// Decode parses a YAML mapping into a ConfigDoc.
func Decode(path string, b []byte) (domain.ConfigDoc, error) {
	var raw any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, &domain.OpError{
			Op:   "yamlcfg.decode",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}
	if raw == nil {
		return domain.ConfigDoc{}, nil
	}

	norm, err := normalize(raw)
	if err != nil {
		return nil, domain.InvalidConfig("yamlcfg.decode", path, "%s", err.Error())
	}
	m, ok := norm.(map[string]any)
	if !ok {
		return nil, domain.InvalidConfig("yamlcfg.decode", path, "top level must be a mapping, got %T", raw)
	}
	return domain.ConfigDoc(m), nil
}

// WriteConfig creates parent directories and writes doc as YAML.
// Map keys come out sorted.
func (s *Store) WriteConfig(path string, doc domain.ConfigDoc) error {
	if err := os.MkdirAll(filepath.Dir(path), s.dirMode); err != nil {
		return &domain.OpError{
			Op:   "yamlcfg.mkdir",
			Kind: domain.KindExecution,
			Path: filepath.Dir(path),
			Err:  err,
		}
	}

	b, err := s.Encode(doc)
	if err != nil {
		return &domain.OpError{
			Op:   "yamlcfg.encode",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}

	if err := os.WriteFile(path, b, 0o644); err != nil {
		return &domain.OpError{
			Op:   "yamlcfg.write",
			Kind: domain.KindExecution,
			Path: path,
			Err:  err,
		}
	}
	return nil
}

func (s *Store) Encode(doc domain.ConfigDoc) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any(doc)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ListConfigs returns every .yaml/.yml file below root in lexical walk order.
func (s *Store) ListConfigs(root string) ([]domain.ConfigRef, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &domain.OpError{
			Op:   "yamlcfg.list",
			Kind: domain.KindNotFound,
			Path: root,
			Err:  err,
		}
	}
	if !info.IsDir() {
		return nil, domain.InvalidConfig("yamlcfg.list", root, "not a directory")
	}

	var refs []domain.ConfigRef
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsConfigFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		refs = append(refs, domain.ConfigRef{
			Name: strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())),
			Path: p,
			Rel:  rel,
		})
		return nil
	})
	if err != nil {
		return nil, &domain.OpError{
			Op:   "yamlcfg.list",
			Kind: domain.KindExecution,
			Path: root,
			Err:  err,
		}
	}

	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Rel < refs[j].Rel })
	return refs, nil
}

// IsConfigFile reports whether name has a YAML extension.
func IsConfigFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
