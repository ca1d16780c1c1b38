package registry

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// findIfProtoExists resolves protoPath against the proto directories; the
// first existing match wins.
func (r *Registry) findIfProtoExists(protoPath string) (string, error) {
	protoPath = strings.Trim(protoPath, `"`)
	if !strings.HasSuffix(protoPath, ".proto") {
		return "", errors.Newf("is not a .proto file: %s", protoPath)
	}

	dirs := r.ProtoDirectories
	if len(dirs) == 0 {
		dirs = []string{""}
	}
	var lastErr error
	for _, dir := range dirs {
		fullPath := r.join(dir, protoPath)
		info, err := r.stat(fullPath)
		if err != nil {
			lastErr = err
			continue
		}
		if info.IsDir() {
			lastErr = errors.Newf("%s is a directory", fullPath)
			continue
		}
		return fullPath, nil
	}
	return "", errors.Wrapf(lastErr, "path does not exist: %s", protoPath)
}

func (r *Registry) join(dir, name string) string {
	if r.fsys != nil {
		if dir == "" {
			dir = "."
		}
		return path.Join(dir, name)
	}
	return filepath.Join(dir, name)
}

func (r *Registry) stat(name string) (fs.FileInfo, error) {
	if r.fsys != nil {
		return fs.Stat(r.fsys, name)
	}
	return os.Stat(name)
}

func (r *Registry) readFile(name string) ([]byte, error) {
	if r.fsys != nil {
		return fs.ReadFile(r.fsys, name)
	}
	return os.ReadFile(name)
}

/*
getReferencedType returns the fully qualified name for a type reference made
from inside scope. It tries, in order: a leading-dot absolute name, the name
as written, and then the name relative to each enclosing scope from the
innermost outwards.
Ref - https://github.com/protocolbuffers/protobuf/blob/b7a5772caf08d62a20fd1bca258f501fa4db022c/src/google/protobuf/descriptor.proto#L186-L191
*/
func getReferencedType(typeName, scope string, known map[string]struct{}) (string, error) {
	if strings.HasPrefix(typeName, ".") {
		return getFullyQualifiedType(typeName, known)
	}
	if result, ok := splitNameAndCheck(typeName, scope, known); ok {
		return result, nil
	}
	if _, ok := known[typeName]; ok {
		return typeName, nil
	}
	return "", errors.Newf("unable to resolve type name: %s", typeName)
}

// splitNameAndCheck walks scope outwards, appending typeName at each level.
func splitNameAndCheck(typeName, scope string, known map[string]struct{}) (string, bool) {
	if scope == "" {
		return "", false
	}
	parts := strings.Split(scope, ".")
	for len(parts) > 0 {
		candidate := strings.Join(parts, ".") + "." + typeName
		if _, ok := known[candidate]; ok {
			return candidate, true
		}
		parts = parts[:len(parts)-1]
	}
	return "", false
}

func getFullyQualifiedType(typeName string, known map[string]struct{}) (string, error) {
	typeName = strings.TrimPrefix(typeName, ".")
	if _, ok := known[typeName]; ok {
		return typeName, nil
	}
	return "", errors.Newf("unable to resolve fully qualified type name: %s", typeName)
}
