package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	includeTag      = "!include"
	rootPrefix      = "@root/"
	maxIncludeDepth = 10
)

// IncludeResolver splices `!include other.yaml` nodes into a catalog file so
// shared test-case or rule lists can live in their own files. References are
// relative to the including file, or to the catalog root with "@root/".
type IncludeResolver struct {
	rootDir string
}

// NewIncludeResolver creates a resolver confined to rootDir.
func NewIncludeResolver(rootDir string) *IncludeResolver {
	return &IncludeResolver{rootDir: rootDir}
}

// Resolve replaces every !include node under node, recursively.
func (r *IncludeResolver) Resolve(node *yaml.Node, currentDir string) error {
	return r.walk(node, currentDir, 0)
}

func (r *IncludeResolver) walk(node *yaml.Node, currentDir string, depth int) error {
	if node == nil {
		return nil
	}
	if depth > maxIncludeDepth {
		return fmt.Errorf("%s nested deeper than %d", includeTag, maxIncludeDepth)
	}

	if node.Tag == includeTag {
		return r.splice(node, currentDir, depth)
	}
	for _, child := range node.Content {
		if err := r.walk(child, currentDir, depth); err != nil {
			return err
		}
	}
	return nil
}

func (r *IncludeResolver) splice(node *yaml.Node, currentDir string, depth int) error {
	path, err := r.locate(node.Value, currentDir)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s %q: %w", includeTag, node.Value, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s %q: %w", includeTag, node.Value, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return fmt.Errorf("%s %q is empty", includeTag, node.Value)
	}

	included := doc.Content[0]
	if err := r.walk(included, filepath.Dir(path), depth+1); err != nil {
		return err
	}
	*node = *included
	return nil
}

// locate turns a reference into a path inside the root directory.
func (r *IncludeResolver) locate(ref, currentDir string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%s needs a file name", includeTag)
	}
	if filepath.IsAbs(ref) {
		return "", fmt.Errorf("%s %q: absolute paths are not allowed", includeTag, ref)
	}
	if !isYAMLFile(ref) {
		return "", fmt.Errorf("%s %q: only YAML files can be included", includeTag, ref)
	}

	var path string
	if rest, ok := strings.CutPrefix(ref, rootPrefix); ok {
		path = filepath.Join(r.rootDir, rest)
	} else {
		path = filepath.Join(currentDir, ref)
	}

	root := r.rootDir
	if real, err := filepath.EvalSymlinks(root); err == nil {
		root = real
	}
	target := path
	if real, err := filepath.EvalSymlinks(path); err == nil {
		target = real
	}
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s %q escapes the catalog directory", includeTag, ref)
	}
	return path, nil
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
